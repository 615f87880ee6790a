package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// RecentMessages returns up to limit of the most recent messages in
// channelID, newest first.
func (a *Adapter) RecentMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error) {
	var messages []*discordgo.Message
	err := a.withRetry(ctx, "recent-messages", func() error {
		var listErr error
		messages, listErr = a.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
		return listErr
	})
	if err != nil {
		return nil, wrapUpstream("recent-messages", err)
	}
	return messages, nil
}
