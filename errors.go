/*
Copyright © 2026 Dattha Sashank
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Conditions surfaced to the requesting client only, never broadcast.
// Illegal-turn and illegal-phase actions are silent no-ops instead.
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrJoinRejected  = errors.New("room full or game in progress")
	ErrInvalidConfig = errors.New("max rounds must be a positive number")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
