package model

// 教室类型
const (
	RoomTypeLecture    = "lecture"
	RoomTypeLaboratory = "laboratory"
)

// Room 教室表，对应 rooms
// 名称全校唯一；排课通过 room_name 引用，归档（is_active=false）时级联移除排课
type Room struct {
	RoomID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"room_id"`
	Name     string `gorm:"type:varchar(50);not null"                      json:"name"`
	Capacity int    `gorm:"not null"                                       json:"capacity"`
	RoomType string `gorm:"column:room_type;type:varchar(20);not null;default:'lecture'" json:"room_type"`
	IsActive bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Room) TableName() string { return "rooms" }
