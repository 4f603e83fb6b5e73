package config

import (
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern     = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	resourceIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)
	fileModePattern   = regexp.MustCompile(`^0?[0-7]{3,4}$`)
	sshGitPattern     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+:[a-zA-Z0-9._/~-]+$`)
	knownGroups       = map[string]struct{}{"system": {}, "application": {}, "sandbox": {}}
)

// validatorInstance configures and returns the shared validator instance used across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("resource_id", func(fl validator.FieldLevel) bool {
			return resourceIDPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("group", func(fl validator.FieldLevel) bool {
			_, ok := knownGroups[fl.Field().String()]
			return ok
		})

		_ = v.RegisterValidation("filemode", func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			return value == "" || fileModePattern.MatchString(value)
		})

		_ = v.RegisterValidation("git_url", func(fl validator.FieldLevel) bool {
			urlStr := fl.Field().String()
			if urlStr == "" {
				return true
			}
			if strings.TrimSpace(urlStr) == "" {
				return false
			}

			if parsedURL, err := url.Parse(urlStr); err == nil {
				scheme := strings.ToLower(parsedURL.Scheme)
				if (scheme == "http" || scheme == "https" || scheme == "ssh") && parsedURL.Host != "" {
					return true
				}
			}

			if sshGitPattern.MatchString(urlStr) {
				return true
			}

			return isValidFilePath(urlStr)
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns a configured validator instance for use outside the config package.
func GetValidator() *validator.Validate {
	return validatorInstance()
}

// isValidFilePath performs syntactic validation of file paths without filesystem access.
func isValidFilePath(path string) bool {
	if path == "" || strings.Contains(path, "\x00") {
		return false
	}

	if strings.HasPrefix(path, "/") {
		return !strings.Contains(path, "/../") && !strings.HasSuffix(path, "/..")
	}

	return strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../")
}
