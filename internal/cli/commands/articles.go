package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/oojn4/korika/internal/api"
	"github.com/oojn4/korika/internal/cli/output"
)

// NewArticlesCommand creates the articles command group.
func NewArticlesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "articles",
		Aliases: []string{"article"},
		Short:   "Manage dashboard articles",
	}

	cmd.AddCommand(newArticlesListCommand())
	cmd.AddCommand(newArticlesShowCommand())
	cmd.AddCommand(newArticlesCreateCommand())
	cmd.AddCommand(newArticlesDeleteCommand())

	return cmd
}

func newArticlesListCommand() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			articles, err := cc.Client.ListArticles(cmd.Context(), status)
			if err != nil {
				return fmt.Errorf("failed to list articles: %w", err)
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(articles)
			}
			if len(articles) == 0 {
				r.Muted("No articles.")
				return nil
			}
			rows := make([][]string, len(articles))
			for i, a := range articles {
				published := ""
				if a.PublishedAt != nil {
					published = a.PublishedAt.Format("2006-01-02")
				}
				rows[i] = []string{strconv.Itoa(a.ID), a.Title, a.Author, a.Status, published, articleExcerpt(a.Content, excerptLen)}
			}
			return r.Table([]string{"ID", "Title", "Author", "Status", "Published", "Excerpt"}, rows)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only articles with this status (draft, published)")
	return cmd
}

const excerptLen = 60

// articleExcerpt returns the first limit runes of an HTML body's text.
func articleExcerpt(body string, limit int) string {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(body))
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return truncateRunes(strings.Join(strings.Fields(sb.String()), " "), limit)
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken:
			name, _ := z.TagName()
			switch a := atom.Lookup(name); {
			case a == atom.Script || a == atom.Style:
				if tt == html.StartTagToken {
					skip++
				} else if skip > 0 {
					skip--
				}
			case isBlock(a):
				sb.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			sb.WriteByte(' ')
		}
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Li, atom.Ul, atom.Ol, atom.Blockquote,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Tr, atom.Td, atom.Th:
		return true
	}
	return false
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit])) + "…"
}

func parseArticleID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid article id %q", s)
	}
	return id, nil
}

func newArticlesShowCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an article as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArticleID(args[0])
			if err != nil {
				return err
			}
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			a, err := cc.Client.GetArticle(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to get article %d: %w", id, err)
			}
			return renderArticle(cc.Renderer, a, raw)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the HTML body unchanged")
	return cmd
}

// renderArticle prints an article with its HTML body converted to Markdown.
func renderArticle(r *output.Renderer, a *api.Article, raw bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(a)
	}

	body := a.Content
	if !raw {
		md, err := htmltomarkdown.ConvertString(a.Content)
		if err != nil {
			return fmt.Errorf("failed to convert article body: %w", err)
		}
		body = md
	}

	r.Header(1, a.Title)
	if a.Author != "" {
		r.KeyValue("Author", a.Author)
	}
	if a.PublishedAt != nil {
		r.KeyValue("Published", a.PublishedAt.Format("2006-01-02"))
	}
	r.Println("")
	r.Println(strings.TrimSpace(body))
	return nil
}

func newArticlesCreateCommand() *cobra.Command {
	var in api.NewArticle
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an article",
		Example: `  korika articles create --title "Musim hujan" --file body.html
  echo "<p>Gunakan kelambu</p>" | korika articles create --title Kelambu --file -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file != "" {
				content, err := readContent(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				in.Content = content
			}
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			a, err := cc.Client.CreateArticle(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("failed to create article: %w", err)
			}
			if cc.Renderer.EffectiveMode() == output.ModeJSON {
				return cc.Renderer.JSON(a)
			}
			cc.Renderer.Success(fmt.Sprintf("Created article %d: %s", a.ID, a.Title))
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "Article title")
	cmd.Flags().StringVar(&in.Content, "content", "", "HTML body")
	cmd.Flags().StringVar(&file, "file", "", "Read the HTML body from a file (- for stdin)")
	cmd.Flags().StringVar(&in.Author, "author", "", "Author name")
	cmd.Flags().StringVar(&in.Status, "status", "", "Initial status (draft, published)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func readContent(stdin io.Reader, file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file) //nolint:gosec // user-supplied path is intended
	}
	if err != nil {
		return "", fmt.Errorf("failed to read article body: %w", err)
	}
	return string(data), nil
}

func newArticlesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArticleID(args[0])
			if err != nil {
				return err
			}
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			if err := cc.Client.DeleteArticle(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete article %d: %w", id, err)
			}
			cc.Renderer.Success(fmt.Sprintf("Deleted article %d", id))
			return nil
		},
	}
}
