// Package presentation renders command output for humans and tools.
package presentation

import "github.com/zjrosen/gensynth/internal/repository"

// LanguageDTO represents one available language for presentation
type LanguageDTO struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"` // always present, possibly empty
	User       bool     `json:"user"`
}

// FromLanguage converts repository info to a DTO
func FromLanguage(info repository.Info) LanguageDTO {
	exts := info.Extensions
	if exts == nil {
		exts = []string{}
	}
	return LanguageDTO{
		ID:         info.ID,
		Name:       info.Name,
		Extensions: exts,
		User:       info.User,
	}
}

// FromLanguages converts a slice of repository infos to DTOs
func FromLanguages(infos []repository.Info) []LanguageDTO {
	dtos := make([]LanguageDTO, len(infos))
	for i, info := range infos {
		dtos[i] = FromLanguage(info)
	}
	return dtos
}
