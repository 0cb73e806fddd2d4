// Package ocr recognizes text on rendered PDF pages. Engines plug in behind
// small interfaces; the Runner adds page selection, a content-addressed
// cache and best-effort failure reporting on top of them.
package ocr
