package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// refreshBatchSize bounds how many chunk URLs are refreshed concurrently in
// one RefreshURLs call, keeping well under Discord's per-route rate limit.
const refreshBatchSize = 50

// RefreshedURL is the outcome of refreshing one chunk's attachment URL.
type RefreshedURL struct {
	Ref MessageRef
	URL string
	Err error
}

// GetAttachmentURL re-fetches a message and returns its (possibly renewed)
// first attachment URL. Discord attachment URLs embed an expiry in their
// "ex" query parameter and are re-signed on every message fetch, so
// refreshing is just re-reading the message.
func (a *Adapter) GetAttachmentURL(ctx context.Context, ref MessageRef) (string, error) {
	var message *discordgo.Message
	err := a.withRetry(ctx, "refresh-url", func() error {
		var getErr error
		message, getErr = a.session.ChannelMessage(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
		return getErr
	})
	if err != nil {
		return "", wrapUpstream("refresh-url", err)
	}
	if len(message.Attachments) == 0 {
		return "", wrapUpstream("refresh-url", errNoAttachment)
	}
	return message.Attachments[0].URL, nil
}

var errNoAttachment = &noAttachmentError{}

type noAttachmentError struct{}

func (*noAttachmentError) Error() string { return "message has no attachment" }

// RefreshURLs refreshes many chunk URLs concurrently, capped at
// refreshBatchSize in flight at once. Order of the returned slice matches
// refs.
func (a *Adapter) RefreshURLs(ctx context.Context, refs []MessageRef) []RefreshedURL {
	results := make([]RefreshedURL, len(refs))
	sem := make(chan struct{}, refreshBatchSize)
	var wg sync.WaitGroup

	for i, ref := range refs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, ref MessageRef) {
			defer wg.Done()
			defer func() { <-sem }()

			url, err := a.GetAttachmentURL(ctx, ref)
			results[i] = RefreshedURL{Ref: ref, URL: url, Err: err}
		}(i, ref)
	}
	wg.Wait()

	return results
}
