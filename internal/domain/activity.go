// Activity records. These tables are written by the inbound API when a
// tracked action is credited and read back in bulk by the stats snapshot
// that feeds achievement evaluation. They carry no balance state.
package domain

import "time"

// Coffee is a brewed round, owned by the user who made it.
type Coffee struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);not null;index:idx_coffee_user,priority:1"`
	Kind      string    `json:"kind,omitempty" gorm:"type:varchar(64)"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_coffee_user,priority:2"`
}

// TableName returns the database table name for Coffee.
func (Coffee) TableName() string { return "coffees" }

// Supply is a bag of beans (or filters, milk, ...) brought in for the team.
type Supply struct {
	ID          string    `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID      string    `json:"user_id" gorm:"type:varchar(64);not null;index"`
	Description string    `json:"description,omitempty" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for Supply.
func (Supply) TableName() string { return "supplies" }

// ChatMessage is a minimal record of a message sent in team chat. Content
// never reaches this service; only authorship and timing matter here.
type ChatMessage struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);not null;index:idx_message_user,priority:1"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_message_user,priority:2"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// Reaction is an emoji reaction on a chat message. UserID is the reactor,
// RecipientID the author of the reacted-to message.
type Reaction struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	MessageID   string    `json:"message_id"   gorm:"type:char(36);not null;index"`
	UserID      string    `json:"user_id"      gorm:"type:varchar(64);not null;index"`
	RecipientID string    `json:"recipient_id" gorm:"type:varchar(64);index"`
	Emoji       string    `json:"emoji"        gorm:"type:varchar(64);not null"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for Reaction.
func (Reaction) TableName() string { return "reactions" }

// Rating is a 1..5 star verdict on a coffee. RaterID is the reviewer,
// RecipientID the maker of the rated coffee.
type Rating struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	CoffeeID    string    `json:"coffee_id"    gorm:"type:char(36);not null;index"`
	RaterID     string    `json:"rater_id"     gorm:"type:varchar(64);not null;index"`
	RecipientID string    `json:"recipient_id" gorm:"type:varchar(64);not null;index"`
	Stars       int       `json:"stars"        gorm:"not null;check:stars BETWEEN 1 AND 5"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for Rating.
func (Rating) TableName() string { return "ratings" }
