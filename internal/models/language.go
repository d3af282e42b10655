package models

type Language struct {
	ID       int    `json:"id"`
	Language string `json:"language"`
}
