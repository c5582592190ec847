package entity

type FileContent struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}
