// Package i18n holds the localized, user-facing messages returned by the
// service. Arabic is the primary language.
package i18n

import (
	"fmt"
	"strings"
)

// Lang is a supported language tag.
type Lang string

const (
	Arabic  Lang = "ar"
	English Lang = "en"
)

// Default is used when no language is requested.
const Default = Arabic

// Key identifies a message.
type Key string

const (
	FetchErrorTitle       Key = "fetch_error_title"
	FetchError            Key = "fetch_error"
	DeleteSuccessTitle    Key = "delete_success_title"
	DeleteSuccess         Key = "delete_success"
	DeleteError           Key = "delete_error"
	UploadSuccessTitle    Key = "upload_success_title"
	UploadSuccess         Key = "upload_success"
	UploadNeedsSource     Key = "upload_needs_source"
	SignInRequired        Key = "sign_in_required"
	RequestSubmitted      Key = "request_submitted"
	RequestSubmitError    Key = "request_submit_error"
	RequestApproved       Key = "request_approved"
	RequestRejected       Key = "request_rejected"
	RequestUpdateError    Key = "request_update_error"
	RequestsFetchError    Key = "requests_fetch_error"
	NewRequestTitle       Key = "new_request_title"
	NameRequired          Key = "name_required"
	EmailInvalid          Key = "email_invalid"
	MessageTooShort       Key = "message_too_short"
	MessageRequiredFields Key = "message_required_fields"
	MessageDuplicate      Key = "message_duplicate"
	MessageForbidden      Key = "message_forbidden"
	MessageSendError      Key = "message_send_error"
	MessageSent           Key = "message_sent"
	NewMessageTitle       Key = "new_message_title"
	NewMessageFrom        Key = "new_message_from"
	ContactSubject        Key = "contact_subject"
	MessagesFetchError    Key = "messages_fetch_error"
	ChatSendError         Key = "chat_send_error"
	ChatEmpty             Key = "chat_empty"
	EventAdded            Key = "event_added"
	EventAddError         Key = "event_add_error"
	AdminAdded            Key = "admin_added"
	AdminAddError         Key = "admin_add_error"
	AdminRemoved          Key = "admin_removed"
	AdminsFetchError      Key = "admins_fetch_error"
	Forbidden             Key = "forbidden"
	NotFound              Key = "not_found"
	InvalidInput          Key = "invalid_input"
	GenericError          Key = "generic_error"
)

var catalog = map[Lang]map[Key]string{
	Arabic: {
		FetchErrorTitle:       "خطأ!",
		FetchError:            "حدث خطأ أثناء تحميل المحتوى",
		DeleteSuccessTitle:    "تم الحذف!",
		DeleteSuccess:         "تم حذف المحتوى بنجاح",
		DeleteError:           "حدث خطأ أثناء حذف المحتوى",
		UploadSuccessTitle:    "تم بنجاح!",
		UploadSuccess:         "تم رفع المحتوى بنجاح",
		UploadNeedsSource:     "يجب إدخال رابط أو رفع ملف",
		SignInRequired:        "يجب تسجيل الدخول أولاً",
		RequestSubmitted:      "تم إرسال طلب إضافة المحتوى بنجاح وسيتم مراجعته من قبل المشرف",
		RequestSubmitError:    "حدث خطأ أثناء إرسال الطلب",
		RequestApproved:       "تم قبول الطلب بنجاح",
		RequestRejected:       "تم رفض الطلب بنجاح",
		RequestUpdateError:    "حدث خطأ أثناء تحديث حالة الطلب",
		RequestsFetchError:    "حدث خطأ أثناء جلب طلبات المحتوى",
		NewRequestTitle:       "طلب محتوى جديد",
		NameRequired:          "يرجى إدخال الاسم الكامل",
		EmailInvalid:          "يرجى إدخال بريد إلكتروني صحيح",
		MessageTooShort:       "يرجى كتابة رسالة لا تقل عن 10 أحرف",
		MessageRequiredFields: "يرجى تعبئة جميع الحقول المطلوبة",
		MessageDuplicate:      "تم إرسال هذه الرسالة مسبقاً",
		MessageForbidden:      "عذراً، لا يمكنك إرسال رسائل في الوقت الحالي",
		MessageSendError:      "حدث خطأ أثناء إرسال الرسالة. يرجى المحاولة مرة أخرى",
		MessageSent:           "تم إرسال رسالتك بنجاح",
		NewMessageTitle:       "رسالة جديدة",
		NewMessageFrom:        "رسالة جديدة من %s",
		ContactSubject:        "رسالة جديدة من نموذج الاتصال",
		MessagesFetchError:    "حدث خطأ أثناء جلب الرسائل",
		ChatSendError:         "حدث خطأ أثناء إرسال الرسالة",
		ChatEmpty:             "لا يمكن إرسال رسالة فارغة",
		EventAdded:            "تم إضافة الحدث بنجاح",
		EventAddError:         "حدث خطأ أثناء إضافة الحدث",
		AdminAdded:            "تم إضافة المشرف بنجاح",
		AdminAddError:         "حدث خطأ أثناء إضافة المشرف",
		AdminRemoved:          "تم إزالة المشرف بنجاح",
		AdminsFetchError:      "حدث خطأ أثناء جلب قائمة المشرفين",
		Forbidden:             "عذراً، ليس لديك صلاحية للقيام بهذا الإجراء",
		NotFound:              "العنصر المطلوب غير موجود",
		InvalidInput:          "البيانات المدخلة غير صحيحة",
		GenericError:          "حدث خطأ غير متوقع. يرجى المحاولة مرة أخرى",
	},
	English: {
		FetchErrorTitle:       "Error!",
		FetchError:            "Something went wrong while loading content",
		DeleteSuccessTitle:    "Deleted!",
		DeleteSuccess:         "Content deleted successfully",
		DeleteError:           "Something went wrong while deleting content",
		UploadSuccessTitle:    "Done!",
		UploadSuccess:         "Content uploaded successfully",
		UploadNeedsSource:     "Provide a link or upload a file",
		SignInRequired:        "Please sign in first",
		RequestSubmitted:      "Your content request was sent and will be reviewed by an admin",
		RequestSubmitError:    "Something went wrong while sending the request",
		RequestApproved:       "Request approved",
		RequestRejected:       "Request rejected",
		RequestUpdateError:    "Something went wrong while updating the request",
		RequestsFetchError:    "Something went wrong while loading content requests",
		NewRequestTitle:       "New content request",
		NameRequired:          "Please enter your full name",
		EmailInvalid:          "Please enter a valid email address",
		MessageTooShort:       "Please write a message of at least 10 characters",
		MessageRequiredFields: "Please fill in all required fields",
		MessageDuplicate:      "This message was already sent",
		MessageForbidden:      "Sorry, you cannot send messages right now",
		MessageSendError:      "Something went wrong while sending the message. Please try again",
		MessageSent:           "Your message was sent",
		NewMessageTitle:       "New message",
		NewMessageFrom:        "New message from %s",
		ContactSubject:        "New message from the contact form",
		MessagesFetchError:    "Something went wrong while loading messages",
		ChatSendError:         "Something went wrong while sending the message",
		ChatEmpty:             "Cannot send an empty message",
		EventAdded:            "Event added",
		EventAddError:         "Something went wrong while adding the event",
		AdminAdded:            "Admin added",
		AdminAddError:         "Something went wrong while adding the admin",
		AdminRemoved:          "Admin removed",
		AdminsFetchError:      "Something went wrong while loading admins",
		Forbidden:             "You are not allowed to do this",
		NotFound:              "The requested item was not found",
		InvalidInput:          "The submitted data is invalid",
		GenericError:          "Something unexpected happened. Please try again",
	},
}

// Parse resolves a language tag such as "ar-EG" or "en" to a supported Lang.
func Parse(tag string) Lang {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_,;"); i >= 0 {
		tag = tag[:i]
	}
	if _, ok := catalog[Lang(tag)]; ok {
		return Lang(tag)
	}
	return Default
}

// T returns the message for key in lang, falling back to the default
// language and finally to the key itself.
func T(lang Lang, key Key) string {
	if m, ok := catalog[lang][key]; ok {
		return m
	}
	if m, ok := catalog[Default][key]; ok {
		return m
	}
	return string(key)
}

// Notice is a short user-facing notification.
type Notice struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive,omitempty"`
}

// Failure builds a destructive notice from a message key.
func Failure(lang Lang, key Key) Notice {
	return Notice{Description: T(lang, key), Destructive: true}
}

var typeNouns = map[Lang]map[string]string{
	Arabic:  {"image": "صورة", "video": "فيديو", "file": "ملف", "talent": "موهوب"},
	English: {"image": "image", "video": "video", "file": "file", "talent": "talent"},
}

var newRequestFormats = map[Lang]string{
	Arabic:  "طلب إضافة %s جديد: %s",
	English: "New %s request: %s",
}

// NewRequestMessage describes a freshly submitted content request for the
// admin notification.
func NewRequestMessage(lang Lang, storageType, title string) string {
	if _, ok := newRequestFormats[lang]; !ok {
		lang = Default
	}
	noun, ok := typeNouns[lang][storageType]
	if !ok {
		noun = storageType
	}
	return fmt.Sprintf(newRequestFormats[lang], noun, title)
}

// Format renders a message that carries a single %s placeholder.
func Format(lang Lang, key Key, arg string) string {
	return fmt.Sprintf(T(lang, key), arg)
}
