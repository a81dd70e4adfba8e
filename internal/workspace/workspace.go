// Package workspace owns the record collections and the analytics built on
// them. It is the single state object handed to every surface.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/theo/internal/analytics"
	"github.com/user/theo/internal/collection"
	"github.com/user/theo/internal/intake"
	"github.com/user/theo/internal/state"
	"github.com/user/theo/internal/types"
)

// Options tunes how a Workspace is opened.
type Options struct {
	IDFormat string
	Location *time.Location
	Rules    []analytics.Rule
	Now      func() time.Time
}

// Workspace holds one collection per entity kind.
type Workspace struct {
	store *state.Store
	now   func() time.Time

	events   *collection.Collection[types.Event]
	ideas    *collection.Collection[types.Idea]
	media    *collection.Collection[types.MediaAsset]
	messages *collection.Collection[types.Message]
	contacts *collection.Collection[types.ContactProfile]

	analytics *analytics.Analytics
}

// Open loads every collection from store.
func Open(ctx context.Context, store *state.Store, opts Options) *Workspace {
	idOpt := collection.WithIDGenerator(types.GeneratorFor(opts.IDFormat))
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	w := &Workspace{
		store:    store,
		now:      now,
		events:   collection.Load[types.Event](ctx, store, types.KindEvent.StoreKey(), idOpt),
		ideas:    collection.Load[types.Idea](ctx, store, types.KindIdea.StoreKey(), idOpt),
		media:    collection.Load[types.MediaAsset](ctx, store, types.KindMedia.StoreKey(), idOpt),
		messages: collection.Load[types.Message](ctx, store, types.KindMessage.StoreKey(), idOpt),
		contacts: collection.Load[types.ContactProfile](ctx, store, types.KindContact.StoreKey(), idOpt),
	}

	aopts := []analytics.Option{analytics.WithLocation(opts.Location)}
	if opts.Rules != nil {
		aopts = append(aopts, analytics.WithRules(opts.Rules))
	}
	w.analytics = analytics.New(w.messages, aopts...)

	slog.Debug("workspace opened",
		"events", w.events.Len(),
		"ideas", w.ideas.Len(),
		"media", w.media.Len(),
		"messages", w.messages.Len(),
		"contacts", w.contacts.Len(),
	)
	return w
}

func (w *Workspace) Events() *collection.Collection[types.Event]            { return w.events }
func (w *Workspace) Ideas() *collection.Collection[types.Idea]              { return w.ideas }
func (w *Workspace) Media() *collection.Collection[types.MediaAsset]        { return w.media }
func (w *Workspace) Messages() *collection.Collection[types.Message]        { return w.messages }
func (w *Workspace) Contacts() *collection.Collection[types.ContactProfile] { return w.contacts }
func (w *Workspace) Analytics() *analytics.Analytics                        { return w.analytics }

// Refresh re-reads every collection so records written by another process
// sharing the store become visible.
func (w *Workspace) Refresh(ctx context.Context) {
	w.events.Reload(ctx)
	w.ideas.Reload(ctx)
	w.media.Reload(ctx)
	w.messages.Reload(ctx)
	w.contacts.Reload(ctx)
}

// Close releases the underlying store.
func (w *Workspace) Close() error {
	return w.store.Close()
}

// AddEvent validates and stores an event.
func (w *Workspace) AddEvent(ctx context.Context, form intake.EventForm) (types.Event, error) {
	draft, err := form.Event()
	if err != nil {
		return types.Event{}, err
	}
	return w.events.Add(ctx, draft)
}

// AddIdea validates and stores an idea.
func (w *Workspace) AddIdea(ctx context.Context, form intake.IdeaForm) (types.Idea, error) {
	draft, err := form.Idea()
	if err != nil {
		return types.Idea{}, err
	}
	return w.ideas.Add(ctx, draft)
}

// LogMessage validates a message, stamps it with the current time and stores it.
func (w *Workspace) LogMessage(ctx context.Context, form intake.MessageForm) (types.Message, error) {
	draft, err := form.Message(w.now())
	if err != nil {
		return types.Message{}, err
	}
	return w.messages.Add(ctx, draft)
}

// AddContact validates and stores a contact profile.
func (w *Workspace) AddContact(ctx context.Context, form intake.ContactForm) (types.ContactProfile, error) {
	draft, err := form.Contact()
	if err != nil {
		return types.ContactProfile{}, err
	}
	return w.contacts.Add(ctx, draft)
}

// AddMedia validates and stores an image.
func (w *Workspace) AddMedia(ctx context.Context, form intake.MediaForm) (types.MediaAsset, error) {
	draft, err := form.Media()
	if err != nil {
		return types.MediaAsset{}, err
	}
	return w.media.Add(ctx, draft)
}

// Remove deletes a record of the given kind. Unknown ids are ignored.
func (w *Workspace) Remove(ctx context.Context, kind types.Kind, id string) error {
	switch kind {
	case types.KindEvent:
		return w.events.Remove(ctx, id)
	case types.KindIdea:
		return w.ideas.Remove(ctx, id)
	case types.KindMedia:
		return w.media.Remove(ctx, id)
	case types.KindMessage:
		return w.messages.Remove(ctx, id)
	case types.KindContact:
		return w.contacts.Remove(ctx, id)
	}
	return fmt.Errorf("unknown kind: %s", kind)
}
