// Package model defines the persisted catalog entities.
package model

// Account is an administrator allowed to manage the catalog.
type Account struct {
	Id           int    `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string `json:"username" gorm:"size:80;uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"column:password_hash;size:255;not null"`
}

func (Account) TableName() string {
	return "users"
}

// Species is one catalog entry describing a plant species.
type Species struct {
	Id             int    `json:"id" gorm:"primaryKey;autoIncrement"`
	CommonName     string `json:"commonName" gorm:"size:200;not null;index"`
	ScientificName string `json:"scientificName" gorm:"size:200;not null"`
	Family         string `json:"family" gorm:"size:120;not null"`
	Genus          string `json:"genus" gorm:"size:120"`
	Location       string `json:"location" gorm:"size:255"`
	Status         string `json:"status" gorm:"size:120"`
	Description    string `json:"description" gorm:"type:text"`
	ImagePath      string `json:"imagePath" gorm:"size:255"`
}

func (Species) TableName() string {
	return "species"
}
