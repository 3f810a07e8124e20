package model

// SyncStatus - локальный статус синхронизации записи. На сервер не передаётся.
type SyncStatus string

const (
	// StatusSynced - запись совпадает с подтверждённым состоянием сервера.
	StatusSynced SyncStatus = "synced"
	// StatusPending - есть локальные изменения, ещё не подтверждённые сервером.
	StatusPending SyncStatus = "pending"
	// StatusDeleted - запись удалена локально, удаление ещё не отправлено.
	StatusDeleted SyncStatus = "deleted"
)

// Dirty сообщает, должна ли запись попасть в push.
func (s SyncStatus) Dirty() bool {
	return s == StatusPending || s == StatusDeleted
}

// Record - общая часть всех синхронизируемых сущностей.
type Record struct {
	ID            string     `json:"id"`
	CreatedAt     int64      `json:"createdAt"` // epoch ms, клиентское время
	UpdatedAt     int64      `json:"updatedAt"` // epoch ms, ключ упорядочивания для LWW
	ServerVersion int64      `json:"serverVersion"`
	IsDeleted     bool       `json:"isDeleted"`
	SyncStatus    SyncStatus `json:"-"`
}

// Newer reports whether r should replace other under last-write-wins:
// later updatedAt wins, ties go to the higher server version.
func (r Record) Newer(other Record) bool {
	if r.UpdatedAt != other.UpdatedAt {
		return r.UpdatedAt > other.UpdatedAt
	}
	return r.ServerVersion > other.ServerVersion
}
