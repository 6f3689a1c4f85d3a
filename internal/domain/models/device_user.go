package models

// DeviceUser 设备上登记的用户，同步时只创建不覆盖
type DeviceUser struct {
	BaseModel
	DeviceID         uint   `gorm:"uniqueIndex:idx_device_user,priority:1;not null" json:"device_id"`
	SubjectID        string `gorm:"type:varchar(50);uniqueIndex:idx_device_user,priority:2;not null" json:"subject_id"`
	UID              int    `json:"uid"` // 设备内部序号 (TCP)
	Name             string `gorm:"type:varchar(100)" json:"name"`
	Privilege        int    `gorm:"default:0" json:"privilege"`
	CardNumber       string `gorm:"type:varchar(50)" json:"card_number"`
	Password         string `gorm:"type:varchar(50)" json:"-"`
	GroupID          string `gorm:"type:varchar(20)" json:"group_id"`
	HasFingerprint   bool   `gorm:"default:false" json:"has_fingerprint"`
	HasFace          bool   `gorm:"default:false" json:"has_face"`
	FingerprintCount int    `gorm:"default:0" json:"fingerprint_count"`
}

// FingerprintTemplate 指纹模板，内容不解析
type FingerprintTemplate struct {
	BaseModel
	DeviceID  uint   `gorm:"uniqueIndex:idx_fp_template,priority:1;not null" json:"device_id"`
	SubjectID string `gorm:"type:varchar(50);uniqueIndex:idx_fp_template,priority:2;not null" json:"subject_id"`
	Index     int    `gorm:"column:finger_index;uniqueIndex:idx_fp_template,priority:3" json:"index"`
	Size      int    `json:"size"`
	Valid     int    `json:"valid"`
	Template  string `gorm:"type:text" json:"-"`
}

// FaceTemplate 人脸模板，内容不解析
type FaceTemplate struct {
	BaseModel
	DeviceID  uint   `gorm:"uniqueIndex:idx_face_template,priority:1;not null" json:"device_id"`
	SubjectID string `gorm:"type:varchar(50);uniqueIndex:idx_face_template,priority:2;not null" json:"subject_id"`
	Index     int    `gorm:"column:face_index;uniqueIndex:idx_face_template,priority:3" json:"index"`
	Size      int    `json:"size"`
	Valid     int    `json:"valid"`
	Template  string `gorm:"type:text" json:"-"`
}
