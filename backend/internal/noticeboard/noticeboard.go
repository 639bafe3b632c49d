// Package noticeboard is the admin notice list with a draft form.
package noticeboard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"uniportal/backend/internal/reconcile"
	"uniportal/backend/internal/restclient"
	"uniportal/backend/internal/session"
	"uniportal/backend/internal/shared"
)

const (
	FieldTitle       = "title"
	FieldDescription = "description"

	promptDeleteNotice = "Delete this notice?"
)

var draftKey = reconcile.Key{Row: "draft", Sub: "notice"}

// Draft is the unsent notice form
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Board holds the published notices and the admin's draft
type Board struct {
	client   *restclient.Client
	notices  *reconcile.Collection[shared.Notice]
	drafts   *reconcile.Edits[Draft]
	dispatch *reconcile.Dispatcher[Draft]
}

// New creates a board. Reading notices is public; publishing and deleting
// need an admin session.
func New(sess *session.Session, base *restclient.Client, confirm reconcile.Confirmer, opts ...reconcile.CollectionOption) (*Board, error) {
	if sess == nil || sess.Role() != shared.RoleAdmin {
		return nil, fmt.Errorf("noticeboard: an admin session is required")
	}

	b := &Board{
		client: sess.Client(base),
		drafts: reconcile.NewEdits[Draft](),
	}
	b.notices = reconcile.NewCollection("notices", func(ctx context.Context) ([]shared.Notice, error) {
		return ListNotices(ctx, b.client)
	}, opts...)
	b.dispatch = reconcile.NewDispatcher("noticeboard", b.drafts, func(ctx context.Context) error {
		return b.notices.Fetch(ctx, reconcile.Background)
	}, confirm)

	return b, nil
}

// ListNotices reads /api/notices. The list arrives under "notices" rather
// than the usual data key; both are accepted.
func ListNotices(ctx context.Context, client *restclient.Client) ([]shared.Notice, error) {
	var out []shared.Notice
	resp, err := client.Get(ctx, "/api/notices", nil, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		if err := resp.DecodeKey("notices", &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Load performs the initial fetch
func (b *Board) Load(ctx context.Context) error {
	return b.notices.Fetch(ctx, reconcile.Initial)
}

// Notices returns the published notices, newest first
func (b *Board) Notices() []shared.Notice {
	rows := b.notices.Rows()
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows
}

// Status returns the notice collection's load state
func (b *Board) Status() reconcile.Status {
	return b.notices.Status()
}

// SetDraft updates one field of the draft
func (b *Board) SetDraft(field, value string) error {
	d := b.Draft()
	switch field {
	case FieldTitle:
		d.Title = value
	case FieldDescription:
		d.Description = value
	default:
		return fmt.Errorf("noticeboard: unknown field %q", field)
	}
	b.drafts.Set(draftKey, d)
	return nil
}

// Draft returns the current draft
func (b *Board) Draft() Draft {
	return b.drafts.Value(draftKey, nil)
}

// Publish posts the draft. The draft is cleared only when the server
// accepts it. The server's message is returned on success.
func (b *Board) Publish(ctx context.Context) (string, error) {
	var message string

	_, err := b.dispatch.Submit(ctx, reconcile.Mutation[Draft]{
		Key:   draftKey,
		Value: b.Draft(),
		Validate: func(d Draft) error {
			if err := reconcile.CheckVar(FieldTitle, strings.TrimSpace(d.Title), "required", "Title is required."); err != nil {
				return err
			}
			return reconcile.CheckVar(FieldDescription, strings.TrimSpace(d.Description), "required", "Description is required.")
		},
		Send: func(ctx context.Context, d Draft) error {
			payload := Draft{Title: strings.TrimSpace(d.Title), Description: strings.TrimSpace(d.Description)}
			resp, err := b.client.Post(ctx, "/api/notices", payload, nil)
			if err != nil {
				return err
			}
			message = resp.Message
			return nil
		},
	})
	return message, err
}

// Delete removes a notice after the user confirms
func (b *Board) Delete(ctx context.Context, id string) (string, error) {
	var message string

	_, err := b.dispatch.Delete(ctx, reconcile.Key{Row: "notice", Sub: id}, promptDeleteNotice, func(ctx context.Context) error {
		resp, err := b.client.Delete(ctx, restclient.PathEscape("/api/notices", id), nil, nil)
		if err != nil {
			return err
		}
		message = resp.Message
		return nil
	}, nil)
	return message, err
}
