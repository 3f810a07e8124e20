package model

import (
	"encoding/json"
	"time"
)

// Meta - общие поля синхронизируемых записей.
// CreatedAt/UpdatedAt приходят от клиента (epoch ms), gorm их не трогает.
type Meta struct {
	ID            string `gorm:"primaryKey" json:"id"`
	CreatedAt     int64  `gorm:"autoCreateTime:false;not null;default:0" json:"createdAt"`
	UpdatedAt     int64  `gorm:"autoUpdateTime:false;not null;default:0" json:"updatedAt"`
	ServerVersion int64  `gorm:"not null;index" json:"serverVersion"`
	IsDeleted     bool   `gorm:"not null;default:false" json:"isDeleted"`
}

// Card - серверная модель карточки.
type Card struct {
	Meta
	FolderID *string        `gorm:"index" json:"folderId"`
	Title    string         `json:"title"`
	Draft    string         `json:"draft"`
	Payload  map[string]any `gorm:"type:text;serializer:json" json:"payload,omitempty"`
	RawText  string         `json:"rawText"`
}

// Folder - серверная модель папки.
type Folder struct {
	Meta
	ParentID *string        `gorm:"index" json:"parentId"`
	Title    string         `json:"title"`
	Payload  map[string]any `gorm:"type:text;serializer:json" json:"payload,omitempty"`
}

// RichDocument - серверная модель документа редактора.
type RichDocument struct {
	Meta
	Content json.RawMessage   `gorm:"type:text;serializer:json" json:"content"`
	History []json.RawMessage `gorm:"type:text;serializer:json" json:"history"`
}

// Batch - тройка коллекций в теле push и ответах full/pull.
type Batch struct {
	Cards         []Card         `json:"card"`
	Folders       []Folder       `json:"folder"`
	RichDocuments []RichDocument `json:"richDocument"`
}

// Len returns the total number of records.
func (b Batch) Len() int {
	return len(b.Cards) + len(b.Folders) + len(b.RichDocuments)
}

// Counter - именованный монотонный счётчик (глобальная версия сервера).
type Counter struct {
	Name  string `gorm:"primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

// PushKey - принятый ключ идемпотентности push-запроса.
type PushKey struct {
	Key       string    `gorm:"primaryKey;column:idempotency_key"`
	Version   int64     `gorm:"not null"` // версия сервера после применения
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
