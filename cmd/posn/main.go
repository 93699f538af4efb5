// posn manages the local friend list of a posn client: it records and
// accepts friend requests, shows key fingerprints and exports conversation
// history.
//
// The friend list lives in --data-dir (default ~/.posn). Options may come
// from a YAML or JSONC file given with --config, from POSN_* environment
// variables, and from a .env file given with --env-file.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/opd-ai/posn"
	"github.com/opd-ai/posn/conversation"
	"github.com/opd-ai/posn/failure"
	"github.com/opd-ai/posn/friend"
)

// errUsage marks errors caused by a malformed command line.
var errUsage = errors.New("usage error")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var configPath, envFile, dataDir string

	flagSet := pflag.NewFlagSet("posn", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", "", "options file (YAML, or JSON with comments for .json/.jsonc)")
	flagSet.StringVar(&envFile, "env-file", "", "load environment variables from this .env file first")
	flagSet.StringVar(&dataDir, "data-dir", "", "directory holding the friend list (overrides config and POSN_DATA_DIR)")
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.SetInterspersed(false)

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(stderr, flagSet)
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr, flagSet)
		return fmt.Errorf("%w: missing command", errUsage)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	options, err := loadOptions(configPath, dataDir)
	if err != nil {
		return err
	}

	client, err := posn.New(options)
	if err != nil {
		return err
	}
	defer client.Close()

	return dispatch(client, rest[0], rest[1:], stdout)
}

func loadOptions(configPath, dataDir string) (*posn.Options, error) {
	options := posn.NewOptions()
	if configPath != "" {
		loaded, err := posn.LoadOptions(configPath)
		if err != nil {
			return nil, err
		}
		options = loaded
	}
	options.ApplyEnv()
	if dataDir != "" {
		options.DataDir = dataDir
	}
	if err := options.ConfigureLogging(); err != nil {
		return nil, err
	}
	return options, nil
}

func dispatch(client *posn.Client, command string, args []string, stdout io.Writer) error {
	switch command {
	case "request":
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("%w: request <id> <name> [message]", errUsage)
		}
		message := ""
		if len(args) == 3 {
			message = args[2]
		}
		if err := client.RequestFriend(args[0], args[1], message); err != nil {
			return err
		}
		return client.Save()

	case "accept":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("%w: accept <id> [status]", errUsage)
		}
		status := friend.StatusAccepted
		if len(args) == 2 {
			parsed, err := friend.ParseStatus(args[1])
			if err != nil {
				return fmt.Errorf("%w: %v", errUsage, err)
			}
			status = parsed
		}
		f, err := client.AcceptPending(args[0], status)
		if err != nil {
			return err
		}
		if err := client.Save(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "accepted %s (%s) key %s\n", f.ID, f.Status, f.Fingerprint())
		return nil

	case "reject":
		if len(args) != 1 {
			return fmt.Errorf("%w: reject <id>", errUsage)
		}
		if !client.RejectRequest(args[0]) {
			return fmt.Errorf("%w: %q", posn.ErrRequestNotFound, args[0])
		}
		return client.Save()

	case "list":
		if len(args) != 0 {
			return fmt.Errorf("%w: list takes no arguments", errUsage)
		}
		return list(client, stdout)

	case "export":
		if len(args) != 2 {
			return fmt.Errorf("%w: export <threads.json> <out.json>", errUsage)
		}
		threads, err := readThreads(args[0])
		if err != nil {
			return err
		}
		return client.ExportConversations(threads, args[1])

	case "fingerprint":
		if len(args) != 1 {
			return fmt.Errorf("%w: fingerprint <id>", errUsage)
		}
		f, ok := client.GetFriend(args[0])
		if !ok {
			return fmt.Errorf("%w: %q", posn.ErrFriendNotFound, args[0])
		}
		fmt.Fprintln(stdout, f.Fingerprint())
		return nil

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func list(client *posn.Client, stdout io.Writer) error {
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tID\tNAME\tSTATUS\tDETAIL")
	for _, f := range client.Friends() {
		fmt.Fprintf(w, "friend\t%s\t%s\t%s\t%s\n", f.ID, f.Name, f.Status, f.Fingerprint())
	}
	for _, r := range client.PendingRequests() {
		fmt.Fprintf(w, "request\t%s\t%s\t%s\t%s\n", r.ID, r.Name, "pending", r.Message)
	}
	return w.Flush()
}

// readThreads reads a JSON object mapping thread IDs to message arrays.
func readThreads(path string) (conversation.Threads, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.IO("read threads", err)
	}
	var threads conversation.Threads
	if err := json.Unmarshal(data, &threads); err != nil {
		return nil, failure.Parse("read threads", fmt.Errorf("%s: %w", path, err))
	}
	return threads, nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, `posn manages the local friend list.

Usage:
  posn [flags] <command> [arguments]

Commands:
  request <id> <name> [message]   record an incoming friend request
  accept <id> [status]            accept a pending request (status: accepted,
                                  awaiting_confirmation, blocked)
  reject <id>                     drop a pending request
  list                            show friends and pending requests
  export <threads.json> <out.json>
                                  export conversation threads
  fingerprint <id>                show a friend's key fingerprint

Flags:
`)
	flagSet.PrintDefaults()
}
