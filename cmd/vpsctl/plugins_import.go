package main

// Blank imports ensure kind init() registration runs for the CLI binary.
import (
	_ "github.com/alexisbeaulieu97/vpsctl/internal/plugins/command"
	_ "github.com/alexisbeaulieu97/vpsctl/internal/plugins/file"
	_ "github.com/alexisbeaulieu97/vpsctl/internal/plugins/firewall"
	_ "github.com/alexisbeaulieu97/vpsctl/internal/plugins/gateway"
	_ "github.com/alexisbeaulieu97/vpsctl/internal/plugins/image"
	_ "github.com/alexisbeaulieu97/vpsctl/internal/plugins/line"
	_ "github.com/alexisbeaulieu97/vpsctl/internal/plugins/package"
	_ "github.com/alexisbeaulieu97/vpsctl/internal/plugins/repo"
	_ "github.com/alexisbeaulieu97/vpsctl/internal/plugins/service"
	_ "github.com/alexisbeaulieu97/vpsctl/internal/plugins/swap"
	_ "github.com/alexisbeaulieu97/vpsctl/internal/plugins/symlink"
	_ "github.com/alexisbeaulieu97/vpsctl/internal/plugins/user"
)
