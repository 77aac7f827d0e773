package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/oojn4/korika/internal/cli/output"
	"github.com/oojn4/korika/internal/prediction"
	"github.com/oojn4/korika/internal/results"
)

const shellPrompt = "korika> "

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell [batch-id]",
		Short: "Interactive shell over a stored batch",
		Long: `Open an interactive shell over a stored batch prediction. Each command
changes the view (search, facility filter, page, page size or column group)
and prints the resulting page. Type 'help' for the command list.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return runShell(cmd, ref)
		},
	}
}

// shellOutcome tells the loop what to do after a command.
type shellOutcome int

const (
	shellShow shellOutcome = iota
	shellQuiet
	shellHelp
	shellOptions
	shellQuit
)

// applyShellCommand interprets one shell line against st. Every view
// command maps onto a single reducer action.
func applyShellCommand(st results.State, line string) (results.State, shellOutcome, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return st, shellQuiet, nil
	}
	command := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch command {
	case "quit", "exit", "q":
		return st, shellQuit, nil

	case "help", "?":
		return st, shellHelp, nil

	case "options":
		return st, shellOptions, nil

	case "show", "ls":
		return st, shellShow, nil

	case "search", "/":
		return results.Reduce(st, results.SearchChanged{Query: arg}), shellShow, nil

	case "clear":
		return results.Reduce(st, results.SearchChanged{Query: ""}), shellShow, nil

	case "facility":
		id, err := results.ParseFacility(arg)
		if err != nil {
			return st, shellQuiet, err
		}
		return results.Reduce(st, results.FacilityChanged{ID: id}), shellShow, nil

	case "page":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return st, shellQuiet, fmt.Errorf("usage: page <n> (n >= 1)")
		}
		return results.Reduce(st, results.PageChanged{Page: n}), shellShow, nil

	case "next", "n":
		if st.Page() >= st.TotalPages() {
			return st, shellQuiet, errors.New("already on the last page")
		}
		return results.Reduce(st, results.PageChanged{Page: st.Page() + 1}), shellShow, nil

	case "prev", "p":
		if st.Page() <= 1 {
			return st, shellQuiet, errors.New("already on the first page")
		}
		return results.Reduce(st, results.PageChanged{Page: st.Page() - 1}), shellShow, nil

	case "size":
		n, err := strconv.Atoi(arg)
		if err != nil || !results.ValidPageSize(n) {
			return st, shellQuiet, fmt.Errorf("usage: size <n> (one of %v)", results.PageSizes)
		}
		return results.Reduce(st, results.PageSizeChanged{Size: n}), shellShow, nil

	case "group":
		g := st.Group().Next()
		if arg != "" {
			var err error
			if g, err = prediction.ParseGroup(arg); err != nil {
				return st, shellQuiet, err
			}
		}
		return results.Reduce(st, results.GroupChanged{Group: g}), shellShow, nil
	}

	return st, shellQuiet, fmt.Errorf("unknown command: %s (type help for commands)", command)
}

func runShell(cmd *cobra.Command, ref string) error {
	cc := NewCommandContextWithoutClient(cmd)
	batch, err := loadBatch(cmd, cc, ref)
	if err != nil {
		return err
	}
	st := batchState(cc, batch)
	r := cc.Renderer

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     historyFile(cc.Cfg, "shell_history"),
		AutoComplete:    newShellCompleter(st),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r.Printf("korika shell (batch %s, %d records)\n", shortID(batch.ID), len(st.Records()))
	r.Println("Type help for commands, quit to exit")
	r.Println("")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		next, outcome, cmdErr := applyShellCommand(st, line)
		if cmdErr != nil {
			r.Error(cmdErr.Error())
			continue
		}
		st = next

		switch outcome {
		case shellQuit:
			return nil
		case shellHelp:
			printShellHelp(r.Writer())
		case shellOptions:
			printShellOptions(r, st)
		case shellShow:
			if err := renderShellPage(r, st); err != nil {
				r.Error(err.Error())
			}
		}
	}
	return nil
}

// renderShellPage prints the current page without the batch summary.
func renderShellPage(r *output.Renderer, st results.State) error {
	t := st.Table()
	r.Header(2, t.Group.Title())
	if len(t.Rows) == 0 {
		r.Muted("No records match the current filters.")
	} else if err := r.Table(t.Headers, t.Rows, output.AlignRightFrom(len(prediction.IdentityHeaders))); err != nil {
		return err
	}
	line := formatPageInfo(st.PageInfo())
	if q := st.Query(); q != "" {
		line += fmt.Sprintf(" · search %q", q)
	}
	if id, ok := st.Facility(); ok {
		line += fmt.Sprintf(" · facility %d", id)
	}
	r.Muted(line)
	r.Println("")
	return nil
}

func printShellOptions(r *output.Renderer, st results.State) {
	opts := st.FacilityOptions()
	if len(opts) == 0 {
		r.Muted("No facilities in this batch.")
		return
	}
	labels := make([]string, len(opts))
	for i, o := range opts {
		labels[i] = strconv.Itoa(o.ID)
	}
	r.KeyValue("Facilities", strings.Join(labels, ", "))
	sizes := make([]string, len(results.PageSizes))
	for i, s := range results.PageSizes {
		sizes[i] = strconv.Itoa(s)
	}
	r.KeyValue("Page sizes", strings.Join(sizes, ", "))
	groups := make([]string, len(prediction.Groups))
	for i, g := range prediction.Groups {
		groups[i] = string(g)
	}
	r.KeyValue("Groups", strings.Join(groups, ", "))
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  search <text>        Search by facility id, month/year or total positive
  clear                Clear the search
  facility <id|all>    Show one facility, or all facilities
  page <n>             Go to page n
  next / prev          Next or previous page
  size <n>             Records per page (5, 10, 20, 50, 100)
  group [name]         Column group (main, age, species, other); cycles without a name
  show                 Print the current page again
  options              List facility ids, page sizes and groups
  help                 Show this help message
  quit / exit          Leave the shell

Tips:
  - Changing the search or facility returns to page 1
  - Use arrow keys to navigate history
  - Tab completion works for commands, facilities and groups
`
	_, _ = fmt.Fprintln(w, help)
}

// newShellCompleter creates a readline completer for shell commands.
func newShellCompleter(st results.State) *readline.PrefixCompleter {
	facilities := []readline.PrefixCompleterInterface{readline.PcItem("all")}
	for _, o := range st.FacilityOptions() {
		facilities = append(facilities, readline.PcItem(strconv.Itoa(o.ID)))
	}

	var sizes []readline.PrefixCompleterInterface
	for _, s := range results.PageSizes {
		sizes = append(sizes, readline.PcItem(strconv.Itoa(s)))
	}

	var groups []readline.PrefixCompleterInterface
	for _, g := range prediction.Groups {
		groups = append(groups, readline.PcItem(string(g)))
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("search"),
		readline.PcItem("clear"),
		readline.PcItem("facility", facilities...),
		readline.PcItem("page"),
		readline.PcItem("next"),
		readline.PcItem("prev"),
		readline.PcItem("size", sizes...),
		readline.PcItem("group", groups...),
		readline.PcItem("show"),
		readline.PcItem("options"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
		readline.PcItem("exit"),
	)
}
