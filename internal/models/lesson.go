package models

// DefaultLessonImage is served when a lesson has no image of its own.
const DefaultLessonImage = "/images/placeholder.webp"

// Lesson represents a bookable after-school class with a finite number
// of remaining spaces. Space is only ever changed through the store's
// conditional decrement/adjust operations, never by direct field updates.
type Lesson struct {
	ID       string  `json:"id" db:"id"`
	Subject  string  `json:"subject" db:"subject"`
	Location string  `json:"location" db:"location"`
	Price    float64 `json:"price" db:"price"`
	Space    int     `json:"space" db:"space"`
	Image    string  `json:"image" db:"image"`
}

// ImageOrDefault returns the lesson image path, falling back to the
// shared placeholder.
func (l Lesson) ImageOrDefault() string {
	if l.Image == "" {
		return DefaultLessonImage
	}
	return l.Image
}
