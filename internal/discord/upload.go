package discord

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ChunkRef identifies one stored chunk: the Discord message carrying it,
// its attachment URL at the time of upload, and its size.
type ChunkRef struct {
	MessageID string
	ChannelID string
	URL       string
	Size      int64
}

// Upload sends data as a single-attachment message in channelID and returns
// a reference to the stored chunk. The attachment filename carries no
// plaintext information: the server is content-blind (spec.md §9), so the
// name is just an opaque chunk identifier.
func (a *Adapter) Upload(ctx context.Context, channelID, chunkName string, data []byte) (*ChunkRef, error) {
	var message *discordgo.Message
	err := a.withRetry(ctx, "upload", func() error {
		var sendErr error
		message, sendErr = a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Files: []*discordgo.File{{
				Name:        chunkName,
				ContentType: "application/octet-stream",
				Reader:      bytes.NewReader(data),
			}},
		}, discordgo.WithContext(ctx))
		return sendErr
	})
	if err != nil {
		return nil, wrapUpstream("upload", err)
	}
	if len(message.Attachments) == 0 {
		return nil, fmt.Errorf("discord returned no attachment for uploaded chunk")
	}

	att := message.Attachments[0]
	return &ChunkRef{
		MessageID: message.ID,
		ChannelID: channelID,
		URL:       att.URL,
		Size:      int64(att.Size),
	}, nil
}

// UploadText sends a plain content message with no attachment. The Backup
// Protocol does not use it: it sends its marker text together with the
// snapshot through UploadFile.
func (a *Adapter) UploadText(ctx context.Context, channelID, content string) (*discordgo.Message, error) {
	var message *discordgo.Message
	err := a.withRetry(ctx, "upload-text", func() error {
		var sendErr error
		message, sendErr = a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content: content,
		}, discordgo.WithContext(ctx))
		return sendErr
	})
	if err != nil {
		return nil, wrapUpstream("upload-text", err)
	}
	return message, nil
}

// UploadFile sends a single-attachment message carrying arbitrary bytes
// with a caller-chosen filename, used by the Backup Protocol to attach the
// raw index snapshot.
func (a *Adapter) UploadFile(ctx context.Context, channelID, content, filename string, data []byte) (*discordgo.Message, error) {
	var message *discordgo.Message
	err := a.withRetry(ctx, "upload-file", func() error {
		var sendErr error
		message, sendErr = a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content: content,
			Files: []*discordgo.File{{
				Name:   filename,
				Reader: bytes.NewReader(data),
			}},
		}, discordgo.WithContext(ctx))
		return sendErr
	})
	if err != nil {
		return nil, wrapUpstream("upload-file", err)
	}
	return message, nil
}
