package lineplugin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func compiled(t *testing.T, r Rule) Rule {
	t.Helper()
	require.NoError(t, r.compile())
	return r
}

func TestRuleApply(t *testing.T) {
	t.Parallel()

	lines := []string{"Port 22", "#PermitRootLogin yes", "UsePAM yes", "PermitRootLogin yes"}

	cases := []struct {
		name       string
		rule       Rule
		onMultiple string
		want       []string
	}{
		{
			name:       "replace all matches",
			rule:       Rule{Match: `^#?PermitRootLogin\b`, Line: "PermitRootLogin no"},
			onMultiple: onMultipleAll,
			want:       []string{"Port 22", "PermitRootLogin no", "UsePAM yes", "PermitRootLogin no"},
		},
		{
			name:       "replace first match",
			rule:       Rule{Match: `^#?PermitRootLogin\b`, Line: "PermitRootLogin no"},
			onMultiple: onMultipleFirst,
			want:       []string{"Port 22", "PermitRootLogin no", "UsePAM yes", "PermitRootLogin yes"},
		},
		{
			name: "append when no match",
			rule: Rule{Match: `^MaxAuthTries`, Line: "MaxAuthTries 3"},
			want: []string{"Port 22", "#PermitRootLogin yes", "UsePAM yes", "PermitRootLogin yes", "MaxAuthTries 3"},
		},
		{
			name: "literal line already present",
			rule: Rule{Line: "UsePAM yes"},
			want: lines,
		},
		{
			name: "remove matches",
			rule: Rule{Match: `PermitRootLogin`, State: ruleStateAbsent},
			want: []string{"Port 22", "UsePAM yes"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rule := compiled(t, tc.rule)
			got, err := rule.apply(lines, tc.onMultiple)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
	require.Equal(t, "#PermitRootLogin yes", lines[1], "input must not be modified")
}

func TestRuleApply_ErrorOnMultiple(t *testing.T) {
	t.Parallel()

	rule := compiled(t, Rule{Match: `^x`, Line: "x=1"})
	_, err := rule.apply([]string{"x=2", "x=3"}, onMultipleError)
	require.ErrorContains(t, err, "2 lines match")
}

func TestRuleCompile_Errors(t *testing.T) {
	t.Parallel()

	require.Error(t, (&Rule{Match: "a"}).compile())
	require.Error(t, (&Rule{State: ruleStateAbsent}).compile())
	require.Error(t, (&Rule{Match: "(", Line: "x"}).compile())
}

func TestSplitJoinRoundTrip(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"a\nb\n", "a\nb", "single"} {
		lines, trailing := splitLines(content)
		require.Equal(t, content, joinLines(lines, trailing))
	}
}
