package message

import (
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"
)

// ContentType tags the payload variant of a message.
type ContentType string

const (
	ContentText                  ContentType = "text"
	ContentImage                 ContentType = "image"
	ContentVideo                 ContentType = "video"
	ContentAudio                 ContentType = "audio"
	ContentDocument              ContentType = "document"
	ContentSticker               ContentType = "sticker"
	ContentReaction              ContentType = "reaction"
	ContentLocation              ContentType = "location"
	ContentContact               ContentType = "contact"
	ContentPoll                  ContentType = "poll"
	ContentProtocol              ContentType = "protocol"
	ContentSenderKeyDistribution ContentType = "sender_key_distribution"
	ContentUnknown               ContentType = "unknown"
)

// Content is one of the payload variants below.
type Content interface {
	Type() ContentType
}

// Media is implemented by variants that carry a downloadable attachment.
type Media interface {
	Content
	Downloadable() whatsmeow.DownloadableMessage
}

type Text struct {
	Body string
}

type Image struct {
	Caption  string
	Mimetype string
	Source   *waE2E.ImageMessage
}

type Video struct {
	Caption  string
	Mimetype string
	Source   *waE2E.VideoMessage
}

type Audio struct {
	Voice    bool
	Mimetype string
	Source   *waE2E.AudioMessage
}

type Document struct {
	FileName string
	Caption  string
	Mimetype string
	Source   *waE2E.DocumentMessage
}

type Sticker struct {
	Animated bool
	Source   *waE2E.StickerMessage
}

type Reaction struct {
	Emoji    string
	TargetID string
}

type Location struct {
	Latitude  float64
	Longitude float64
	Name      string
}

type Contact struct {
	DisplayName string
	VCard       string
}

type Poll struct {
	Question string
	Options  []string
}

type Protocol struct {
	Kind string
}

// SenderKeyDistribution is the group key exchange marker; it never carries user content.
type SenderKeyDistribution struct{}

type Unknown struct{}

func (Text) Type() ContentType                  { return ContentText }
func (Image) Type() ContentType                 { return ContentImage }
func (Video) Type() ContentType                 { return ContentVideo }
func (Audio) Type() ContentType                 { return ContentAudio }
func (Document) Type() ContentType              { return ContentDocument }
func (Sticker) Type() ContentType               { return ContentSticker }
func (Reaction) Type() ContentType              { return ContentReaction }
func (Location) Type() ContentType              { return ContentLocation }
func (Contact) Type() ContentType               { return ContentContact }
func (Poll) Type() ContentType                  { return ContentPoll }
func (Protocol) Type() ContentType              { return ContentProtocol }
func (SenderKeyDistribution) Type() ContentType { return ContentSenderKeyDistribution }
func (Unknown) Type() ContentType               { return ContentUnknown }

func (c Image) Downloadable() whatsmeow.DownloadableMessage    { return c.Source }
func (c Video) Downloadable() whatsmeow.DownloadableMessage    { return c.Source }
func (c Audio) Downloadable() whatsmeow.DownloadableMessage    { return c.Source }
func (c Document) Downloadable() whatsmeow.DownloadableMessage { return c.Source }
func (c Sticker) Downloadable() whatsmeow.DownloadableMessage  { return c.Source }

// Classify returns the content variant of raw, or nil when raw carries no payload at all.
// Sender key distribution only wins when nothing else is populated, since the marker
// usually rides along with the first real group message.
func Classify(raw *waE2E.Message) Content {
	if raw == nil {
		return nil
	}

	switch {
	case raw.Conversation != nil:
		return Text{Body: raw.GetConversation()}
	case raw.ExtendedTextMessage != nil:
		return Text{Body: raw.GetExtendedTextMessage().GetText()}
	case raw.ImageMessage != nil:
		img := raw.GetImageMessage()
		return Image{Caption: img.GetCaption(), Mimetype: img.GetMimetype(), Source: img}
	case raw.VideoMessage != nil:
		vid := raw.GetVideoMessage()
		return Video{Caption: vid.GetCaption(), Mimetype: vid.GetMimetype(), Source: vid}
	case raw.AudioMessage != nil:
		aud := raw.GetAudioMessage()
		return Audio{Voice: aud.GetPTT(), Mimetype: aud.GetMimetype(), Source: aud}
	case raw.DocumentMessage != nil || raw.GetDocumentWithCaptionMessage().GetMessage().GetDocumentMessage() != nil:
		doc := document(raw)
		return Document{FileName: doc.GetFileName(), Caption: doc.GetCaption(), Mimetype: doc.GetMimetype(), Source: doc}
	case raw.StickerMessage != nil:
		st := raw.GetStickerMessage()
		return Sticker{Animated: st.GetIsAnimated(), Source: st}
	case raw.ReactionMessage != nil:
		r := raw.GetReactionMessage()
		return Reaction{Emoji: r.GetText(), TargetID: r.GetKey().GetID()}
	case raw.LocationMessage != nil:
		loc := raw.GetLocationMessage()
		return Location{Latitude: loc.GetDegreesLatitude(), Longitude: loc.GetDegreesLongitude(), Name: loc.GetName()}
	case raw.LiveLocationMessage != nil:
		loc := raw.GetLiveLocationMessage()
		return Location{Latitude: loc.GetDegreesLatitude(), Longitude: loc.GetDegreesLongitude()}
	case raw.ContactMessage != nil:
		c := raw.GetContactMessage()
		return Contact{DisplayName: c.GetDisplayName(), VCard: c.GetVcard()}
	case pollCreation(raw) != nil:
		p := pollCreation(raw)
		opts := make([]string, 0, len(p.GetOptions()))
		for _, o := range p.GetOptions() {
			opts = append(opts, o.GetOptionName())
		}
		return Poll{Question: p.GetName(), Options: opts}
	case raw.ProtocolMessage != nil:
		return Protocol{Kind: raw.GetProtocolMessage().GetType().String()}
	case raw.SenderKeyDistributionMessage != nil:
		return SenderKeyDistribution{}
	}

	if proto.Size(raw) == 0 {
		return nil
	}
	return Unknown{}
}

// ExtractText returns the first non-empty of conversation, extended text and media captions.
func ExtractText(raw *waE2E.Message) string {
	if raw == nil {
		return ""
	}
	for _, candidate := range []string{
		raw.GetConversation(),
		raw.GetExtendedTextMessage().GetText(),
		raw.GetImageMessage().GetCaption(),
		raw.GetVideoMessage().GetCaption(),
		document(raw).GetCaption(),
	} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

func document(raw *waE2E.Message) *waE2E.DocumentMessage {
	if doc := raw.GetDocumentMessage(); doc != nil {
		return doc
	}
	return raw.GetDocumentWithCaptionMessage().GetMessage().GetDocumentMessage()
}

func pollCreation(raw *waE2E.Message) *waE2E.PollCreationMessage {
	switch {
	case raw.PollCreationMessage != nil:
		return raw.GetPollCreationMessage()
	case raw.PollCreationMessageV2 != nil:
		return raw.GetPollCreationMessageV2()
	case raw.PollCreationMessageV3 != nil:
		return raw.GetPollCreationMessageV3()
	}
	return nil
}

func contextInfo(raw *waE2E.Message) *waE2E.ContextInfo {
	switch {
	case raw.ExtendedTextMessage != nil:
		return raw.GetExtendedTextMessage().GetContextInfo()
	case raw.ImageMessage != nil:
		return raw.GetImageMessage().GetContextInfo()
	case raw.VideoMessage != nil:
		return raw.GetVideoMessage().GetContextInfo()
	case raw.AudioMessage != nil:
		return raw.GetAudioMessage().GetContextInfo()
	case document(raw) != nil:
		return document(raw).GetContextInfo()
	case raw.StickerMessage != nil:
		return raw.GetStickerMessage().GetContextInfo()
	case raw.LocationMessage != nil:
		return raw.GetLocationMessage().GetContextInfo()
	case raw.ContactMessage != nil:
		return raw.GetContactMessage().GetContextInfo()
	}
	return nil
}
