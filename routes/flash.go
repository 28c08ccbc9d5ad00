/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"encoding/gob"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
)

// FlashType is the severity of a flash banner; it doubles as its CSS class.
type FlashType string

const (
	FlashError   FlashType = "error"
	FlashSuccess FlashType = "success"
	FlashWarning FlashType = "warning"
	FlashInfo    FlashType = "info"
)

// FlashMessage is a one-shot banner shown on the next rendered page. Link,
// when set, points at the page where the user can act on the message.
type FlashMessage struct {
	Type     FlashType
	Message  string
	Link     string
	LinkText string
}

func init() {
	gob.Register(FlashMessage{})
}

// FlashInjector exposes a pending flash message to templates as "Flash".
func FlashInjector() flamego.Handler {
	return func(flash session.Flash, data template.Data) {
		if msg, ok := flash.(FlashMessage); ok {
			data["Flash"] = msg
		}
	}
}

func setFlash(s session.Session, kind FlashType, message string) {
	s.SetFlash(FlashMessage{Type: kind, Message: message})
}

// SetFlashLink sets a flash message that carries a follow-up link.
func SetFlashLink(s session.Session, kind FlashType, message, link, linkText string) {
	s.SetFlash(FlashMessage{Type: kind, Message: message, Link: link, LinkText: linkText})
}

func SetErrorFlash(s session.Session, message string)   { setFlash(s, FlashError, message) }
func SetSuccessFlash(s session.Session, message string) { setFlash(s, FlashSuccess, message) }
func SetWarningFlash(s session.Session, message string) { setFlash(s, FlashWarning, message) }
func SetInfoFlash(s session.Session, message string)    { setFlash(s, FlashInfo, message) }
