package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/worddrop/internal/debuglog"
)

var (
	lessonsAll bool

	debuglogPassword string
	debuglogLimit    int
)

func newLessonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lessons",
		Short: "List and select lesson sources",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List lessons in the lessons directory",
		Args:  cobra.NoArgs,
		RunE:  runLessonsListCmd,
	})
	enable := &cobra.Command{
		Use:   "enable [id...]",
		Short: "Select the lessons used for play",
		RunE:  runLessonsEnableCmd,
	}
	enable.Flags().BoolVar(&lessonsAll, "all", false, "use every lesson in the directory")
	cmd.AddCommand(enable)
	return cmd
}

func runLessonsListCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := a.lib.List()
	if err != nil {
		return lessonsLoadError(a.lib.Root(), err)
	}
	if len(ids) == 0 {
		return lessonsLoadError(a.lib.Root(), fmt.Errorf("no lessons found"))
	}
	selected, err := a.prefs.Lessons(cmd.Context())
	if err != nil {
		return err
	}
	enabled := make(map[string]bool, len(selected))
	for _, id := range selected {
		enabled[id] = true
	}
	for _, id := range ids {
		mark := " "
		if len(selected) == 0 || enabled[id] {
			mark = "*"
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mark, id); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runLessonsEnableCmd(cmd *cobra.Command, args []string) error {
	if lessonsAll == (len(args) > 0) {
		return fmt.Errorf("pass lesson ids or --all")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if lessonsAll {
		if err := a.prefs.SetLessons(cmd.Context(), nil); err != nil {
			return err
		}
		logErrln("Using every lesson.")
		return nil
	}
	ids, err := a.lib.List()
	if err != nil {
		return lessonsLoadError(a.lib.Root(), err)
	}
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	for _, id := range args {
		if !known[id] {
			return fmt.Errorf("unknown lesson %q (available: %s)", id, joinIDs(ids))
		}
	}
	if err := a.prefs.SetLessons(cmd.Context(), args); err != nil {
		return err
	}
	logErrf("Enabled: %s\n", joinIDs(args))
	return nil
}

func newMissedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missed",
		Short: "Review missed words",
		Args:  cobra.NoArgs,
		RunE:  runMissedListCmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget every missed word",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.missed.Clear(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <word>...",
		Short: "Forget the given missed words",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			for _, word := range args {
				if err := a.missed.Remove(cmd.Context(), word); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return cmd
}

func runMissedListCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	entries, err := a.missed.List(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No missed words.")
		return err
	}
	for _, e := range entries {
		line := fmt.Sprintf("%-16s x%-3d %-14s %s", e.Word, e.Count, e.Phonetic, e.Meaning)
		if _, err := fmt.Fprintln(out, strings.TrimRight(line, " ")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newDebuglogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debuglog",
		Short: "Show captured debug log records",
		Args:  cobra.NoArgs,
		RunE:  runDebuglogListCmd,
	}
	cmd.PersistentFlags().StringVar(&debuglogPassword, "password", "", "debug log password (prompted when omitted)")
	cmd.Flags().IntVar(&debuglogLimit, "limit", 50, "show the last N records (0 for all)")
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete captured debug log records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.unlockDebuglog(); err != nil {
				return err
			}
			return a.ring.Clear(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "hash [password]",
		Short: "Print a password hash for the [debuglog] config section",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 1 {
				password = args[0]
			} else {
				read, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = read
			}
			hash, err := debuglog.HashPassword(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "password-hash = %q\n", hash)
			return err
		},
	})
	return cmd
}

func runDebuglogListCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.unlockDebuglog(); err != nil {
		return err
	}
	entries, err := a.ring.List(cmd.Context())
	if err != nil {
		return err
	}
	if debuglogLimit > 0 && len(entries) > debuglogLimit {
		entries = entries[len(entries)-debuglogLimit:]
	}
	out := cmd.OutOrStdout()
	for _, e := range entries {
		if _, err := fmt.Fprintln(out, formatEntry(e)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func (a *app) unlockDebuglog() error {
	hash := ""
	if a.fileCfg.Debuglog.PasswordHash != nil {
		hash = strings.TrimSpace(*a.fileCfg.Debuglog.PasswordHash)
	}
	if hash == "" {
		return nil
	}
	password := debuglogPassword
	if password == "" {
		read, err := readPassword(os.Stdin)
		if err != nil {
			return err
		}
		password = read
	}
	return debuglog.Verify(hash, password)
}

func readPassword(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		logErrf("Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		logErrln()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func formatEntry(e debuglog.Entry) string {
	var b strings.Builder
	b.WriteString(e.Time.Local().Format("2006-01-02 15:04:05"))
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%-5s ", e.Level)
	b.WriteString(e.Message)
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, e.Attrs[k])
	}
	return b.String()
}

func joinIDs(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}
