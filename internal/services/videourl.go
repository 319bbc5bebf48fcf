package services

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const VideoURLMessage = "Video links may only point to YouTube."

var (
	youtubeWatchRE = regexp.MustCompile(`^https?://(www\.)?youtube\.com/watch\?v=`)
	youtubeShortRE = regexp.MustCompile(`^https?://youtu\.be/`)

	ErrVideoURL = errors.New(VideoURLMessage)
)

// ValidateVideoURL accepts youtube.com watch links and youtu.be short links.
func ValidateVideoURL(raw string) error {
	if youtubeWatchRE.MatchString(raw) || youtubeShortRE.MatchString(raw) {
		return nil
	}
	return ErrVideoURL
}

// RegisterVideoURLValidation installs the "youtube" struct tag on v.
func RegisterVideoURLValidation(v *validator.Validate) error {
	return v.RegisterValidation("youtube", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		if s == "" {
			return true
		}
		return ValidateVideoURL(s) == nil
	})
}
