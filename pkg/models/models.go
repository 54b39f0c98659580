package models

import "time"

// ContentKind discriminates the three content collections. A ContentRef is
// carried wherever an id alone would be ambiguous across collections.
type ContentKind string

const (
	KindBook      ContentKind = "book"
	KindEbook     ContentKind = "ebook"
	KindAudioBook ContentKind = "audiobook"
)

func (k ContentKind) Valid() bool {
	return k == KindBook || k == KindEbook || k == KindAudioBook
}

// Model returns the collection name stored on progress records.
func (k ContentKind) Model() string {
	switch k {
	case KindEbook:
		return "Ebook"
	case KindAudioBook:
		return "AudioBook"
	case KindBook:
		return "Book"
	}
	return ""
}

type ContentRef struct {
	Kind ContentKind `json:"kind"`
	ID   string      `json:"id"`
}

// users table
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

const (
	RoleUser       = "USER"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// categories table
type Category struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type CategoryWithCounts struct {
	Category
	TotalBooks     int `json:"totalBooks"`
	AudioBookCount int `json:"audioBookCount"`
	EbookCount     int `json:"ebookCount"`
	BookCount      int `json:"bookCount"`
}

// ContentItem is the row shape shared by books, ebooks and audiobooks.
// Hybrid books may carry both the page-oriented and the audio-oriented
// fields; the Is* flags tell clients which collection a merged item came
// from.
type ContentItem struct {
	ID           string      `json:"_id"`
	Kind         ContentKind `json:"kind"`
	BookName     string      `json:"bookName"`
	BookCover    string      `json:"bookCover"`
	Synopsis     string      `json:"synopsis"`
	CategoryID   string      `json:"category"`
	CategoryName string      `json:"categoryName"`
	Tags         []string    `json:"tags"`
	ViewCount    int         `json:"viewCount"`
	IsSaved      bool        `json:"isSaved"`
	IsBook       bool        `json:"isBook"`
	IsEbook      bool        `json:"isEbook"`
	IsAudioBook  bool        `json:"isAudioBook"`
	PageCount    int         `json:"pageCount,omitempty"`
	PDFFile      string      `json:"pdfFile,omitempty"`
	Duration     int         `json:"duration,omitempty"`
	AudioFile    string      `json:"audioFile,omitempty"`
	CreatedBy    string      `json:"createdBy,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

func (c *ContentItem) Ref() ContentRef { return ContentRef{Kind: c.Kind, ID: c.ID} }

// Pagination describes a page of a merged result set. Per-kind totals refer
// to the whole filtered set, not the returned page.
type Pagination struct {
	Total           int  `json:"total"`
	TotalBooks      int  `json:"totalBooks"`
	TotalEbooks     int  `json:"totalEbooks"`
	TotalAudioBooks int  `json:"totalAudioBooks"`
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// user_progress table, keyed (userID, contentID, contentType). Reading and
// listening are independent axes: a hybrid book tracks both, each with its
// own timestamp.
type UserProgress struct {
	UserID        string      `json:"userId"`
	ContentID     string      `json:"contentId"`
	ContentType   ContentKind `json:"contentType"`
	ContentModel  string      `json:"contentModel"`
	Progress      float64     `json:"progress"`
	CurrentPage   int         `json:"currentPage"`
	TotalPages    int         `json:"totalPages"`
	CurrentTime   float64     `json:"currentTime"`
	TotalDuration float64     `json:"totalDuration"`
	IsCompleted   bool        `json:"isCompleted"`
	Bookmarked    bool        `json:"bookmarked"`
	StartedAt     time.Time   `json:"startedAt"`
	LastReadAt    *time.Time  `json:"lastReadAt,omitempty"`
	LastListenAt  *time.Time  `json:"lastListenAt,omitempty"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// user_activity table: per-user per-day counters, incremented best-effort on
// every progress update.
type UserActivity struct {
	UserID             string `json:"userId"`
	Date               string `json:"date"`
	PagesRead          int    `json:"pagesRead"`
	ReadingMinutes     int    `json:"readingMinutes"`
	TimeListened       int    `json:"timeListened"`
	ListeningMinutes   int    `json:"listeningMinutes"`
	EbooksRead         int    `json:"ebooksRead"`
	AudiobooksListened int    `json:"audiobooksListened"`
}

// ProgressEvent is pushed to the live feed after each successful progress
// update.
type ProgressEvent struct {
	UserID      string      `json:"userId"`
	ContentID   string      `json:"contentId"`
	ContentType ContentKind `json:"contentType"`
	Progress    float64     `json:"progress"`
	Timestamp   int64       `json:"timestamp"`
}
