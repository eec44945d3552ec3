package hxform

import (
	"strings"

	"golang.org/x/text/language"
)

// MessageProvider returns localized messages. id is a message path such as
// ["file", "2"]; an empty string means the message is unknown.
type MessageProvider interface {
	Message(id []string, lang string) string
}

// MessageProviderFunc adapts a function to MessageProvider.
type MessageProviderFunc func(id []string, lang string) string

func (f MessageProviderFunc) Message(id []string, lang string) string { return f(id, lang) }

var messageTags = []language.Tag{
	language.English,
	language.French,
	language.German,
	language.Russian,
}

var defaultMessages = map[language.Tag]map[string]string{
	language.English: {
		"file.1": "The uploaded file exceeds size limit of %d bytes",
		"file.2": "The uploaded file exceeds size limit of %d bytes",
		"file.3": "The file was only partially uploaded",
		"file.6": "Missing a temporary folder",
		"file.7": "Failed to write file to disk",
		"file.8": "File upload stopped by extension",
	},
	language.French: {
		"file.1": "Le fichier envoyé dépasse la taille limite de %d octets",
		"file.2": "Le fichier envoyé dépasse la taille limite de %d octets",
		"file.3": "Le fichier n'a été que partiellement envoyé",
		"file.6": "Dossier temporaire manquant",
		"file.7": "Échec de l'écriture du fichier sur le disque",
		"file.8": "Envoi du fichier arrêté par une extension",
	},
	language.German: {
		"file.1": "Die hochgeladene Datei überschreitet die Größenbeschränkung von %d Bytes",
		"file.2": "Die hochgeladene Datei überschreitet die Größenbeschränkung von %d Bytes",
		"file.3": "Die Datei wurde nur teilweise hochgeladen",
		"file.6": "Temporäres Verzeichnis fehlt",
		"file.7": "Fehler beim Schreiben der Datei auf die Festplatte",
		"file.8": "Dateiupload durch eine Erweiterung gestoppt",
	},
	language.Russian: {
		"file.1": "Размер загруженного файла превосходит максимально допустимый размер в %d байт",
		"file.2": "Размер загруженного файла превосходит максимально допустимый размер в %d байт",
		"file.3": "Файл был загружен лишь частично",
		"file.6": "Отсутствует временный каталог",
		"file.7": "Ошибка записи файла на диск",
		"file.8": "Загрузка файла остановлена расширением",
	},
}

// DefaultMessages serves the builtin upload error messages in English,
// French, German and Russian. lang is any BCP 47 tag or Accept-Language
// value; unmatched languages fall back to English.
var DefaultMessages MessageProvider = defaultProvider{matcher: language.NewMatcher(messageTags)}

type defaultProvider struct {
	matcher language.Matcher
}

func (p defaultProvider) Message(id []string, lang string) string {
	tag := language.English
	if lang != "" {
		_, idx := language.MatchStrings(p.matcher, lang)
		tag = messageTags[idx]
	}
	return defaultMessages[tag][strings.Join(id, ".")]
}
