// Package extract turns one note URL into a NoteRecord, tolerating partial
// collaborator failure.
package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"noteharvest/internal/harvest"
)

const noteBaseURL = "https://www.xiaohongshu.com/explore"

// emoticons maps inline emoticon markup tokens to literal emoji.
var emoticons = strings.NewReplacer(
	"[大笑R]", "😄",
	"[偷笑R]", "😏",
)

// replyPrefix marks flattened reply comments.
const replyPrefix = "↳ "

// NoteURL builds the canonical note URL from a search item's identifier and
// access token.
func NoteURL(noteID, token string) string {
	return fmt.Sprintf("%s/%s?xsec_token=%s", noteBaseURL, noteID, token)
}

// Extractor runs the single-note pipeline against a content source.
type Extractor struct {
	source harvest.ContentSource
	logger *zap.Logger
}

// New constructs an Extractor. A nil logger defaults to a no-op logger.
func New(source harvest.ContentSource, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{source: source, logger: logger}
}

// Extract fetches one note's metadata and first comment page and normalizes
// them into a NoteRecord. A metadata fetch failure aborts the item; a
// comment fetch failure only loses the comments.
func (e *Extractor) Extract(ctx context.Context, noteURL, credential string) (harvest.NoteRecord, error) {
	meta, err := e.source.FetchPost(ctx, noteURL, credential)
	if err != nil {
		return harvest.NoteRecord{}, fmt.Errorf("fetch post: %w", err)
	}

	noteID, token := parseNoteURL(noteURL)
	var comments []harvest.Comment
	page, err := e.source.FetchComments(ctx, noteID, "", token, credential)
	if err != nil {
		// Soft failure: the record survives without its comments.
		e.logger.Warn("comment fetch failed",
			zap.String("note_id", noteID),
			zap.Error(err),
		)
	} else {
		comments = page.Comments
	}

	images := make([]string, 0, len(meta.ImageSet))
	for _, img := range meta.ImageSet {
		if img.URL != "" {
			images = append(images, img.URL)
		}
	}

	return harvest.NoteRecord{
		SourceLink: noteURL,
		Title:      meta.Title,
		BodyText:   meta.Desc,
		Images:     images,
		Comments:   FlattenComments(comments),
	}, nil
}

// parseNoteURL pulls the note identifier and xsec_token out of a note URL.
// A URL without a token yields an empty token; some sources accept that
// with reduced data.
func parseNoteURL(noteURL string) (noteID, token string) {
	u, err := url.Parse(noteURL)
	if err != nil {
		return "", ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 0 {
		noteID = segments[len(segments)-1]
	}
	return noteID, u.Query().Get("xsec_token")
}

// FlattenComments collapses a comment/reply tree into one ordered sequence.
// Top-level comments with text come first, each immediately followed by its
// replies marked with the reply prefix; nesting deeper than one level is
// flattened into the same prefix. Bare-string entries pass through
// verbatim, text-less comments are skipped.
func FlattenComments(comments []harvest.Comment) []string {
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		if c.IsRaw {
			out = append(out, c.Raw)
			continue
		}
		if c.Content != "" {
			out = append(out, emoticons.Replace(c.Content))
		}
		out = appendReplies(out, c.Replies)
	}
	return out
}

func appendReplies(out []string, replies []harvest.Comment) []string {
	for _, reply := range replies {
		if !reply.IsRaw && reply.Content != "" {
			out = append(out, replyPrefix+emoticons.Replace(reply.Content))
		}
		out = appendReplies(out, reply.Replies)
	}
	return out
}
