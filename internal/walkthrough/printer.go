package walkthrough

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"plp-bookstore/internal/models"
)

type printer struct {
	w       io.Writer
	heading lipgloss.Style
	failure lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:       w,
		heading: r.NewStyle().Bold(true),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func (p *printer) Heading(text string) {
	fmt.Fprintf(p.w, "\n%s\n", p.heading.Render(text))
}

func (p *printer) Failure(err error) {
	fmt.Fprintln(p.w, p.failure.Render("error: "+err.Error()))
}

func (p *printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func printDocs[T any](p *printer, docs []T) error {
	if len(docs) == 0 {
		p.Line("(no documents)")
		return nil
	}
	for _, doc := range docs {
		js, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			return fmt.Errorf("render document: %w", err)
		}
		p.Line("%s", js)
	}
	return nil
}

// Result prints the outcome of one section.
func (p *printer) Result(v any) error {
	switch r := v.(type) {
	case []models.Book:
		return printDocs(p, r)
	case []models.BookSummary:
		return printDocs(p, r)
	case []models.GenrePriceStat:
		return printDocs(p, r)
	case []models.DecadeCount:
		return printDocs(p, r)
	case []models.AuthorBookCount:
		return printDocs(p, r)
	case models.AuthorBookCount:
		return printDocs(p, []models.AuthorBookCount{r})
	case *mongo.UpdateResult:
		p.Line("matched %d, modified %d", r.MatchedCount, r.ModifiedCount)
	case *mongo.DeleteResult:
		p.Line("deleted %d", r.DeletedCount)
	case primitive.ObjectID:
		p.Line("inserted %s", r.Hex())
	case IndexName:
		p.Line("index %s", r)
	case models.ExplainSummary:
		p.explain(r)
	default:
		return fmt.Errorf("no rendering for %T", v)
	}
	return nil
}

func (p *printer) explain(e models.ExplainSummary) {
	index := e.IndexName
	if index == "" {
		index = "(none)"
	}
	p.Line("namespace: %s", e.Namespace)
	p.Line("winning plan: %s", strings.Join(e.Stages, " <- "))
	p.Line("index used: %s", index)
	p.Line("nReturned: %d, totalKeysExamined: %d, totalDocsExamined: %d, executionTimeMillis: %d",
		e.NReturned, e.TotalKeysExamined, e.TotalDocsExamined, e.ExecutionTimeMillis)
}
