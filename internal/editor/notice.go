package editor

// Variant selects how a notice is presented.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notice is a user-visible toast.
type Notice struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

var (
	noticeEmptyContent = Notice{
		Title:       "Empty Content",
		Description: "Please write something first",
		Variant:     VariantDestructive,
	}
	noticeEnhanced = Notice{
		Title:       "Content Enhanced",
		Description: "Your text has been magically improved!",
		Variant:     VariantDefault,
	}
	noticeEnhanceFailed = Notice{
		Title:       "Enhancement Failed",
		Description: "Could not enhance the content",
		Variant:     VariantDestructive,
	}
	noticeUploadFailed = Notice{
		Title:       "Upload Failed",
		Description: "Could not attach the image",
		Variant:     VariantDestructive,
	}
)
