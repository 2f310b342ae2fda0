package entities

// Book is a catalog entry. Image holds the cover filename inside the book's
// upload directory, nil when no cover was uploaded.
type Book struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Title       string  `gorm:"not null" json:"title"`
	Author      string  `json:"author"`
	Description string  `json:"description"`
	Image       *string `json:"image,omitempty"`
	Pages       []Page  `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"pages,omitempty"`
}

func (Book) TableName() string {
	return "books"
}

// Page is one page image of a book. PageNumber defines rendering order; the
// store does not enforce uniqueness, normal operation keeps ranks at 1..N.
type Page struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	BookID     uint   `gorm:"not null;index" json:"book_id"`
	Filename   string `gorm:"not null" json:"filename"`
	PageNumber int    `gorm:"not null" json:"page_number"`
}

func (Page) TableName() string {
	return "book_pages"
}

// Note is a free-form entry shown on the index page.
type Note struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Title   string `gorm:"not null" json:"title"`
	Content string `json:"content"`
}

func (Note) TableName() string {
	return "notes"
}
