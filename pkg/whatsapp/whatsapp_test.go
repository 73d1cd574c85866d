package whatsapp

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
)

func TestNormalizeDatastore(t *testing.T) {
	require.Equal(t, "pgx", normalizeDatastoreDriver("PostgreSQL"))
	require.Equal(t, "postgres", normalizeDatastoreDriver("postgres"))
	require.Equal(t, "sqlite", normalizeDatastoreDriver(""))
	require.Equal(t, "sqlite", normalizeDatastoreDriver("sqlite3"))

	require.Equal(t,
		"file:bot.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		normalizeDatastoreDSN("sqlite", "file:bot.db"))
	require.Equal(t,
		"file:bot.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(100)",
		normalizeDatastoreDSN("sqlite", "file:bot.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(100)"))

	pg := normalizeDatastoreDSN("pgx", "postgres://u:p@db/wa?sslmode=disable")
	require.True(t, strings.HasPrefix(pg, "postgres://u:p@db/wa?sslmode=disable&"))
	require.Contains(t, pg, "default_query_exec_mode=simple_protocol")

	require.Equal(t, "postgres://db/wa", normalizeDatastoreDSN("postgres", "postgres://db/wa"))
}

func TestMediaKindFromMime(t *testing.T) {
	require.Equal(t, MediaImage, MediaKindFromMime("image/jpeg"))
	require.Equal(t, MediaImage, MediaKindFromMime("IMAGE/PNG; charset=binary"))
	require.Equal(t, MediaVideo, MediaKindFromMime("video/mp4"))
	require.Equal(t, MediaAudio, MediaKindFromMime("audio/ogg"))
	require.Equal(t, MediaDocument, MediaKindFromMime("image/gif"))
	require.Equal(t, MediaDocument, MediaKindFromMime("application/zip"))
	require.Equal(t, MediaDocument, MediaKindFromMime(""))
}

func TestValidateReaction(t *testing.T) {
	require.NoError(t, ValidateReaction(""))
	require.NoError(t, ValidateReaction("👍"))
	require.NoError(t, ValidateReaction("👨‍👩‍👧"))
	require.ErrorIs(t, ValidateReaction("ok"), ErrInvalidEmoji)
	require.ErrorIs(t, ValidateReaction("👍👍"), ErrInvalidEmoji)
}

func TestBuildText(t *testing.T) {
	plain := buildText("hello", nil)
	require.Equal(t, "hello", plain.GetConversation())
	require.Nil(t, plain.ExtendedTextMessage)

	sender := types.NewJID("15550000002", types.DefaultUserServer)
	quoted := &waE2E.Message{Conversation: strPtr("hi")}
	reply := buildText("hello", &Quote{ID: "ABC", Sender: sender, Message: quoted})
	require.Equal(t, "hello", reply.GetExtendedTextMessage().GetText())
	ctxInfo := reply.GetExtendedTextMessage().GetContextInfo()
	require.Equal(t, "ABC", ctxInfo.GetStanzaID())
	require.Equal(t, sender.String(), ctxInfo.GetParticipant())
	require.Equal(t, "hi", ctxInfo.GetQuotedMessage().GetConversation())
}

func TestBuildMedia(t *testing.T) {
	up := whatsmeow.UploadResponse{URL: "https://mmg/x", DirectPath: "/x", FileLength: 42}

	msg, err := buildMedia(Media{Kind: MediaVideo, Caption: "clip"}, up, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "clip", msg.GetVideoMessage().GetCaption())
	require.Equal(t, "video/mp4", msg.GetVideoMessage().GetMimetype())
	require.Equal(t, uint64(42), msg.GetVideoMessage().GetFileLength())

	msg, err = buildMedia(Media{Kind: MediaDocument, Mimetype: "application/pdf"}, up, nil, &Quote{ID: "Q"})
	require.NoError(t, err)
	require.Equal(t, "file", msg.GetDocumentMessage().GetFileName())
	require.Equal(t, "Q", msg.GetDocumentMessage().GetContextInfo().GetStanzaID())

	_, err = buildMedia(Media{}, up, nil, nil)
	require.ErrorIs(t, err, ErrUnknownMedia)
}

func TestThumbnail(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 200))
	for x := 0; x < 300; x++ {
		img.Set(x, x%200, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	thumb, err := Thumbnail(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF, 0xD8}, thumb[:2])

	_, err = Thumbnail([]byte("not an image"))
	require.Error(t, err)
}

func TestQRDataURL(t *testing.T) {
	url, err := QRDataURL("2@abc,def,ghi")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

func TestVersionRefresherThrottles(t *testing.T) {
	var calls atomic.Int32
	r := &VersionRefresher{
		minInterval: time.Hour,
		fetch: func(context.Context) (*store.WAVersionContainer, error) {
			calls.Add(1)
			return nil, errors.New("offline")
		},
	}

	_, fetched, err := r.Refresh(context.Background(), false)
	require.True(t, fetched)
	require.Error(t, err)
	require.Equal(t, "offline", r.Status().LastError)

	_, fetched, err = r.Refresh(context.Background(), false)
	require.False(t, fetched)
	require.NoError(t, err)

	_, fetched, _ = r.Refresh(context.Background(), true)
	require.True(t, fetched)
	require.Equal(t, int32(2), calls.Load())
}

func strPtr(s string) *string { return &s }

func TestEvictIdleLimiters(t *testing.T) {
	s := NewSession(nil, SessionOptions{RatePerSecond: 1})
	quiet := types.NewJID("15550000001", types.DefaultUserServer)
	busy := types.NewJID("15550000002", types.DefaultUserServer)

	s.limiter(quiet)
	s.limiters[quiet].lastUsed = time.Now().Add(-time.Hour)
	s.limiter(busy)
	require.Len(t, s.limiters, 2)

	require.Equal(t, 1, s.EvictIdleLimiters(time.Now(), 30*time.Minute))
	require.Len(t, s.limiters, 1)
	require.Contains(t, s.limiters, busy)

	// An evicted chat gets a fresh limiter on its next send.
	require.NotNil(t, s.limiter(quiet))
	require.Len(t, s.limiters, 2)
}
