package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/internal/documents"
	"github.com/sirosfoundation/go-citizen-client/internal/domain"
)

const docsHelp = `Commands:
  add <name> [category] [type]   add a document
  rm <id>                        remove a document
  ls [category]                  list documents (default: all)
  show <id>                      show one document
  help                           show this help
  quit                           leave the shell`

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Interactive document registry",
	Long: `Start a shell for the document registry. Documents only live as long
as the shell; they are not stored.

` + docsHelp,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := documents.NewRegistry(current.logger)
		return runDocsShell(cmd.InOrStdin(), cmd.OutOrStdout(), reg, current.logger)
	},
}

// runDocsShell reads commands from in until EOF or quit.
func runDocsShell(in io.Reader, out io.Writer, reg *documents.Registry, logger *zap.Logger) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "docs> ")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 {
			if quit := execDocsCommand(out, reg, fields); quit {
				return nil
			}
		}
		fmt.Fprint(out, "docs> ")
	}
	fmt.Fprintln(out)
	if err := scanner.Err(); err != nil {
		logger.Error("Failed to read input", zap.Error(err))
		return err
	}
	return nil
}

func execDocsCommand(out io.Writer, reg *documents.Registry, fields []string) (quit bool) {
	switch cmd, args := fields[0], fields[1:]; cmd {
	case "add":
		if len(args) == 0 {
			fmt.Fprintln(out, "usage: add <name> [category] [type]")
			return false
		}
		in := domain.NewDocument{Name: args[0], Source: "cli"}
		if len(args) > 1 {
			in.Category = args[1]
		}
		if len(args) > 2 {
			in.Type = args[2]
		}
		doc, err := reg.Add(in)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		fmt.Fprintf(out, "added %s\n", doc.ID)

	case "rm":
		if len(args) != 1 {
			fmt.Fprintln(out, "usage: rm <id>")
			return false
		}
		reg.Remove(args[0])

	case "ls":
		category := domain.CategoryAll
		if len(args) > 0 {
			category = args[0]
		}
		docs := reg.ListByCategory(category)
		if len(docs) == 0 {
			fmt.Fprintln(out, "No documents.")
			return false
		}
		rows := make([][]string, len(docs))
		for i, d := range docs {
			rows[i] = []string{d.ID, d.Name, d.Category, d.Type, d.UploadedDate}
		}
		printTable(out, []string{"ID", "NAME", "CATEGORY", "TYPE", "UPLOADED"}, rows)

	case "show":
		if len(args) != 1 {
			fmt.Fprintln(out, "usage: show <id>")
			return false
		}
		doc, ok := reg.Get(args[0])
		if !ok {
			fmt.Fprintln(out, "not found")
			return false
		}
		_ = printValue(out, doc)

	case "help":
		fmt.Fprintln(out, docsHelp)

	case "quit", "exit":
		return true

	default:
		fmt.Fprintf(out, "unknown command %q, type help\n", cmd)
	}
	return false
}

func init() {
	rootCmd.AddCommand(docsCmd)
}
