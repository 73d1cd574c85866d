package whatsapp

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/sunshineplan/imgconv"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"
)

// MediaKind selects the outbound message type for a payload.
type MediaKind int

const (
	MediaImage MediaKind = iota + 1
	MediaVideo
	MediaAudio
	MediaDocument
)

func (k MediaKind) String() string {
	switch k {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	case MediaDocument:
		return "document"
	}
	return "unknown"
}

func (k MediaKind) appInfo() whatsmeow.MediaType {
	switch k {
	case MediaImage:
		return whatsmeow.MediaImage
	case MediaVideo:
		return whatsmeow.MediaVideo
	case MediaAudio:
		return whatsmeow.MediaAudio
	}
	return whatsmeow.MediaDocument
}

// Media is an outbound attachment.
type Media struct {
	Kind     MediaKind
	Data     []byte
	Mimetype string
	Caption  string
	FileName string
}

// MediaKindFromMime maps a content type to the message type WhatsApp renders inline.
// Anything unrecognised goes out as a document.
func MediaKindFromMime(mimetype string) MediaKind {
	mimetype = strings.ToLower(strings.TrimSpace(mimetype))
	if i := strings.IndexByte(mimetype, ';'); i >= 0 {
		mimetype = strings.TrimSpace(mimetype[:i])
	}
	switch {
	case mimetype == "image/jpeg", mimetype == "image/png", mimetype == "image/webp":
		return MediaImage
	case strings.HasPrefix(mimetype, "video/"):
		return MediaVideo
	case strings.HasPrefix(mimetype, "audio/"):
		return MediaAudio
	}
	return MediaDocument
}

// Thumbnail renders a 72px wide JPEG preview.
func Thumbnail(image []byte) ([]byte, error) {
	decoded, err := imgconv.Decode(bytes.NewReader(image))
	if err != nil {
		return nil, errors.Wrap(err, "decode thumbnail source")
	}
	out := new(bytes.Buffer)
	err = imgconv.Write(out,
		imgconv.Resize(decoded, &imgconv.ResizeOption{Width: 72}),
		&imgconv.FormatOption{Format: imgconv.JPEG})
	if err != nil {
		return nil, errors.Wrap(err, "encode thumbnail")
	}
	return out.Bytes(), nil
}

func buildMedia(media Media, up whatsmeow.UploadResponse, thumb []byte, quote *Quote) (*waE2E.Message, error) {
	ctxInfo := quote.contextInfo()
	mimetype := media.Mimetype
	if mimetype == "" {
		mimetype = defaultMime(media.Kind)
	}

	switch media.Kind {
	case MediaImage:
		return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			Mimetype:      proto.String(mimetype),
			Caption:       proto.String(media.Caption),
			FileLength:    proto.Uint64(up.FileLength),
			FileSHA256:    up.FileSHA256,
			FileEncSHA256: up.FileEncSHA256,
			MediaKey:      up.MediaKey,
			JPEGThumbnail: thumb,
			ContextInfo:   ctxInfo,
		}}, nil
	case MediaVideo:
		return &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			Mimetype:      proto.String(mimetype),
			Caption:       proto.String(media.Caption),
			FileLength:    proto.Uint64(up.FileLength),
			FileSHA256:    up.FileSHA256,
			FileEncSHA256: up.FileEncSHA256,
			MediaKey:      up.MediaKey,
			ContextInfo:   ctxInfo,
		}}, nil
	case MediaAudio:
		return &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			Mimetype:      proto.String(mimetype),
			FileLength:    proto.Uint64(up.FileLength),
			FileSHA256:    up.FileSHA256,
			FileEncSHA256: up.FileEncSHA256,
			MediaKey:      up.MediaKey,
			ContextInfo:   ctxInfo,
		}}, nil
	case MediaDocument:
		name := media.FileName
		if name == "" {
			name = "file"
		}
		return &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			Mimetype:      proto.String(mimetype),
			Title:         proto.String(name),
			FileName:      proto.String(name),
			Caption:       proto.String(media.Caption),
			FileLength:    proto.Uint64(up.FileLength),
			FileSHA256:    up.FileSHA256,
			FileEncSHA256: up.FileEncSHA256,
			MediaKey:      up.MediaKey,
			ContextInfo:   ctxInfo,
		}}, nil
	}
	return nil, ErrUnknownMedia
}

func defaultMime(kind MediaKind) string {
	switch kind {
	case MediaImage:
		return "image/jpeg"
	case MediaVideo:
		return "video/mp4"
	case MediaAudio:
		return "audio/mpeg"
	}
	return "application/octet-stream"
}
