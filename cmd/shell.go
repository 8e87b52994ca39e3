// file: cmd/shell.go
// version: 1.0.0
// guid: cc1bab7c-5c0e-4f7d-9a43-8e25d1f6b0a2

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jdfalk/book-explorer/internal/config"
	"github.com/jdfalk/book-explorer/internal/models"
	"github.com/jdfalk/book-explorer/internal/recommend"
)

var errUnterminatedQuote = errors.New("unterminated quote")

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session with live recommendation updates",
	Long: `Start an interactive session. Every other command can be typed at the
prompt without the program name. Recommendations and trending books are
refreshed in the background whenever your ratings, preferences or reading
list change. Type "exit" to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if activeApp != nil {
			return errors.New("already in a shell")
		}
		watch, _ := cmd.Flags().GetBool("watch")

		app, err := NewApp(config.AppConfig)
		if err != nil {
			return err
		}
		activeApp = app
		defer func() {
			activeApp = nil
			app.Close()
		}()

		ctx, cancel := context.WithCancel(cmd.Context())
		var wg sync.WaitGroup
		defer func() {
			cancel()
			wg.Wait()
		}()

		if watch {
			notify := cmd.ErrOrStderr()
			w := recommend.NewWatcher(app.Engine, app.Hub, config.AppConfig.Recommend.Debounce,
				recommend.OnRecommendations(func(res recommend.Result) {
					fmt.Fprintf(notify, "[%d recommendations ready (%s), run `recommend` to see them]\n", len(res.Books), res.Strategy)
				}),
				recommend.OnTrending(func(books []models.Book) {
					fmt.Fprintf(notify, "[%d trending books updated]\n", len(books))
				}),
			)
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.Run(ctx)
			}()
		}

		return runShell(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func runShell(ctx context.Context, in io.Reader, out, errOut io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		args, err := splitArgs(scanner.Text())
		if err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "shell":
			fmt.Fprintln(errOut, "Error: already in a shell")
			continue
		}

		resetCommandFlags(rootCmd)
		rootCmd.SetArgs(args)
		if err := rootCmd.ExecuteContext(ctx); err != nil {
			if isSuperseded(err) {
				continue
			}
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
	}
}

// resetCommandFlags restores local flags to their defaults so that values do
// not leak from one shell line into the next. Persistent flags given when
// the shell started are kept, except --json. Subcommand contexts are cleared
// too; cobra only hands the root context down to children that have none.
func resetCommandFlags(root *cobra.Command) {
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
			f.Value.Set(f.DefValue)
			f.Changed = false
		})
		if c != root {
			c.SetContext(nil)
		}
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(root)

	if f := root.PersistentFlags().Lookup("json"); f != nil {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
}

// splitArgs splits a line on whitespace. Single or double quotes group
// words; there are no escapes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inWord  bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, errUnterminatedQuote
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}

func init() {
	shellCmd.Flags().Bool("watch", true, "refresh recommendations in the background")
	rootCmd.AddCommand(shellCmd)
}
