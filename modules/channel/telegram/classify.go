package telegram

// Kind is the classified content type of an update.
type Kind int

// Update kinds. The order of the non-fallback kinds matches classifyOrder.
const (
	KindUnknown Kind = iota
	KindMessage
	KindAudio
	KindContact
	KindDocument
	KindEntities
	KindGame
	KindLocation
	KindPhoto
	KindSticker
	KindVideo
	KindVideoNote
	KindVoice
	KindVenue
	KindNewChatMembers
	KindLeftChatMember
	KindNewChatTitle
	KindNewChatPhoto
	KindDeleteChatPhoto
	KindMigrateToChatID
	KindMigrateFromChatID
	KindPinnedMessage
	KindInvoice
	KindSuccessfulPayment
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindMessage:           "message",
	KindAudio:             "audio",
	KindContact:           "contact",
	KindDocument:          "document",
	KindEntities:          "entities",
	KindGame:              "game",
	KindLocation:          "location",
	KindPhoto:             "photo",
	KindSticker:           "sticker",
	KindVideo:             "video",
	KindVideoNote:         "video_note",
	KindVoice:             "voice",
	KindVenue:             "venue",
	KindNewChatMembers:    "new_chat_members",
	KindLeftChatMember:    "left_chat_member",
	KindNewChatTitle:      "new_chat_title",
	KindNewChatPhoto:      "new_chat_photo",
	KindDeleteChatPhoto:   "delete_chat_photo",
	KindMigrateToChatID:   "migrate_to_chat_id",
	KindMigrateFromChatID: "migrate_from_chat_id",
	KindPinnedMessage:     "pinned_message",
	KindInvoice:           "invoice",
	KindSuccessfulPayment: "successful_payment",
}

// String returns the Bot API field name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// classifyOrder is the tie-break when a message carries several content
// fields: the first present field wins. Do not reorder.
var classifyOrder = []struct {
	kind    Kind
	present func(m *Message) bool
}{
	{KindAudio, func(m *Message) bool { return m.Audio != nil }},
	{KindContact, func(m *Message) bool { return m.Contact != nil }},
	{KindDocument, func(m *Message) bool { return m.Document != nil }},
	{KindEntities, func(m *Message) bool { return len(m.Entities) > 0 }},
	{KindGame, func(m *Message) bool { return m.Game != nil }},
	{KindLocation, func(m *Message) bool { return m.Location != nil }},
	{KindPhoto, func(m *Message) bool { return len(m.Photo) > 0 }},
	{KindSticker, func(m *Message) bool { return m.Sticker != nil }},
	{KindVideo, func(m *Message) bool { return m.Video != nil }},
	{KindVideoNote, func(m *Message) bool { return m.VideoNote != nil }},
	{KindVoice, func(m *Message) bool { return m.Voice != nil }},
	{KindVenue, func(m *Message) bool { return m.Venue != nil }},
	{KindNewChatMembers, func(m *Message) bool { return len(m.NewChatMembers) > 0 }},
	{KindLeftChatMember, func(m *Message) bool { return m.LeftChatMember != nil }},
	{KindNewChatTitle, func(m *Message) bool { return m.NewChatTitle != "" }},
	{KindNewChatPhoto, func(m *Message) bool { return len(m.NewChatPhoto) > 0 }},
	{KindDeleteChatPhoto, func(m *Message) bool { return m.DeleteChatPhoto }},
	{KindMigrateToChatID, func(m *Message) bool { return m.MigrateToChatID != 0 }},
	{KindMigrateFromChatID, func(m *Message) bool { return m.MigrateFromChatID != 0 }},
	{KindPinnedMessage, func(m *Message) bool { return m.PinnedMessage != nil }},
	{KindInvoice, func(m *Message) bool { return m.Invoice != nil }},
	{KindSuccessfulPayment, func(m *Message) bool { return m.SuccessfulPayment != nil }},
}

// Classify returns the kind of u. Updates without a message are KindUnknown;
// messages with none of the known content fields are KindMessage.
func Classify(u *Update) Kind {
	if u == nil || u.Message == nil {
		return KindUnknown
	}
	for _, c := range classifyOrder {
		if c.present(u.Message) {
			return c.kind
		}
	}
	return KindMessage
}

// isMedia reports whether k is relayed as a downloaded file.
func (k Kind) isMedia() bool {
	switch k {
	case KindAudio, KindDocument, KindPhoto, KindSticker, KindVideo, KindVoice:
		return true
	}
	return false
}

// isUnsupported reports whether k is answered with a "not supported" reply.
func (k Kind) isUnsupported() bool {
	switch k {
	case KindContact, KindGame, KindLocation, KindVenue, KindInvoice:
		return true
	}
	return false
}
