package store

// BookFilter narrows a book listing. Empty fields match everything.
type BookFilter struct {
	TitlePrefix  string
	AuthorPrefix string
	PublishYear  *int
}

// ReviewerCount is one group of the reviews-per-user aggregation.
type ReviewerCount struct {
	UserID      string
	ReviewCount int
}
