package model

import "encoding/json"

// Card - карточка (запись журнала, задача и т.п.).
type Card struct {
	Record
	FolderID *string        `json:"folderId"` // слабая ссылка на Folder
	Title    string         `json:"title"`
	Draft    string         `json:"draft"` // id RichDocument
	Payload  map[string]any `json:"payload,omitempty"`
	RawText  string         `json:"rawText"`
}

// Folder - папка; ParentID образует дерево через слабые ссылки.
type Folder struct {
	Record
	ParentID *string        `json:"parentId"`
	Title    string         `json:"title"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// RichDocument - документ редактора. History только дополняется.
type RichDocument struct {
	Record
	Content json.RawMessage   `json:"content"`
	History []json.RawMessage `json:"history"`
}

// Changes - набор записей по трём коллекциям.
// Используется и как тело push, и как ответ full/pull.
type Changes struct {
	Cards         []Card         `json:"card"`
	Folders       []Folder       `json:"folder"`
	RichDocuments []RichDocument `json:"richDocument"`
}

// Empty reports whether all three collections are empty.
func (c Changes) Empty() bool {
	return len(c.Cards) == 0 && len(c.Folders) == 0 && len(c.RichDocuments) == 0
}

// Len returns the total number of records.
func (c Changes) Len() int {
	return len(c.Cards) + len(c.Folders) + len(c.RichDocuments)
}

// MaxServerVersion возвращает максимальную serverVersion по всем коллекциям (0, если пусто).
func (c Changes) MaxServerVersion() int64 {
	var v int64
	for _, it := range c.Cards {
		v = max(v, it.ServerVersion)
	}
	for _, it := range c.Folders {
		v = max(v, it.ServerVersion)
	}
	for _, it := range c.RichDocuments {
		v = max(v, it.ServerVersion)
	}
	return v
}
