package main

import (
	"flag"

	"nojschat/internal"
)

// flags mirror the original command line: -p HTTP port, -s SSH port,
// -n chat name, -c config file path.
type flags struct {
	httpPort   int
	sshPort    int
	chatName   string
	configPath string

	httpPortSet bool
	sshPortSet  bool
	chatNameSet bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("nojschat", flag.ContinueOnError)
	fs.IntVar(&f.httpPort, "p", 0, "HTTP port")
	fs.IntVar(&f.sshPort, "s", 0, "SSH port")
	fs.StringVar(&f.chatName, "n", "", "chat display name")
	fs.StringVar(&f.configPath, "c", "config.yml", "path to config file")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "p":
			f.httpPortSet = true
		case "s":
			f.sshPortSet = true
		case "n":
			f.chatNameSet = true
		}
	})
	return f, nil
}

// apply gives flags the last word over file and environment values.
func (f flags) apply(cfg *internal.Config) {
	if f.httpPortSet {
		cfg.HTTPPort = f.httpPort
	}
	if f.sshPortSet {
		cfg.SSHPort = f.sshPort
	}
	if f.chatNameSet {
		cfg.ChatName = f.chatName
	}
}
