package store

// Status is a File's lifecycle state (spec.md §3, §4.D).
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusTrashed Status = "trashed"
)

// File is a logical object: an ordered sequence of Chunks plus the
// client-supplied encryption parameters. The server never interprets IV or
// Salt beyond storing and returning them (spec.md §9, "content-blind").
type File struct {
	ID        string `gorm:"column:id;primaryKey"`
	Name      string `gorm:"column:name;not null"`
	Size      int64  `gorm:"column:size;not null;default:0"`
	Type      string `gorm:"column:type;default:''"`
	IV        string `gorm:"column:iv;default:''"`
	Salt      string `gorm:"column:salt;default:''"`
	Status    Status `gorm:"column:status;not null;index:idx_files_status_created_at"`
	CreatedAt int64  `gorm:"column:created_at;not null;index:idx_files_status_created_at"`
}

func (File) TableName() string { return "files" }

// Chunk is an opaque blob stored as one Discord attachment message.
// (FileID, Idx) is unique and never reindexed once persisted (spec.md §3).
type Chunk struct {
	FileID    string `gorm:"column:file_id;primaryKey"`
	Idx       int    `gorm:"column:idx;primaryKey"`
	MessageID string `gorm:"column:message_id;not null"`
	ChannelID string `gorm:"column:channel_id;not null"`
	Size      int64  `gorm:"column:size;not null"`
	URL       string `gorm:"column:url;default:''"`
}

func (Chunk) TableName() string { return "chunks" }

// FileMeta is the client-facing DTO for creating/describing a File,
// decoupled from the GORM model so request validation (go-playground/
// validator tags) doesn't leak persistence concerns into the wire format.
type FileMeta struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
	Size int64  `json:"size" validate:"gte=0"`
	Type string `json:"type"`
	IV   string `json:"iv"`
	Salt string `json:"salt"`
}
