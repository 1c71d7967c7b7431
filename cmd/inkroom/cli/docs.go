package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/inkroom/inkroom/internal/documents"
)

// DocumentLister is the slice of the document service the docs command needs.
type DocumentLister interface {
	ListDocuments(ctx context.Context, ownerID string) ([]documents.Summary, error)
}

// DocsCLI prints the documents owned by a user.
type DocsCLI struct {
	lister DocumentLister
}

// NewDocsCLI constructs the helper around lister.
func NewDocsCLI(lister DocumentLister) (*DocsCLI, error) {
	if lister == nil {
		return nil, errors.New("docs cli: lister not configured")
	}
	return &DocsCLI{lister: lister}, nil
}

// DocsOptions defines available flags for the docs command.
type DocsOptions struct {
	OwnerID    string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ListCommand prints the owner's documents and returns the process exit code.
func (c *DocsCLI) ListCommand(ctx context.Context, opts DocsOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	ownerID := strings.TrimSpace(opts.OwnerID)
	if ownerID == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "docs: owner id is required")
		return 2
	}
	summaries, err := c.lister.ListDocuments(ctx, ownerID)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "docs: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summaries); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "docs: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	renderDocsHuman(opts.Stdout, ownerID, summaries)
	return 0
}

func renderDocsHuman(out io.Writer, ownerID string, summaries []documents.Summary) {
	if len(summaries) == 0 {
		_, _ = fmt.Fprintf(out, "No documents owned by %s.\n", ownerID)
		return
	}
	_, _ = fmt.Fprintf(out, "%d document(s) owned by %s:\n", len(summaries), ownerID)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ROOM\tNAME\tCREATED\tVISIBILITY\tSHARED WITH")
	for _, s := range summaries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			s.RoomID, s.RoomName, s.CreateTime.UTC().Format(time.RFC3339), s.OverallPermission, sharedWith(s.Permissions))
	}
	_ = tw.Flush()
}

func sharedWith(perms map[string]documents.SharedUser) string {
	if len(perms) == 0 {
		return "-"
	}
	entries := make([]string, 0, len(perms))
	for _, p := range perms {
		name := p.UserName
		if name == "" {
			name = p.ID
		}
		entries = append(entries, fmt.Sprintf("%s(%d)", name, p.Permission))
	}
	sort.Strings(entries)
	return strings.Join(entries, ", ")
}
