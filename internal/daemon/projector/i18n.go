package projector

import (
	"strconv"
	"strings"
)

// Message keys.
const (
	MsgMultipleDevices = "contextMenuMultipleDevices"
	MsgShare           = "shareMessage"
	MsgSMS             = "smsMessage"
	MsgSinglePlugin    = "contextMenuSinglePlugin"
)

// Localizer looks up display strings. Arguments replace $1, $2, ...
type Localizer interface {
	Message(key string, args ...string) string
}

// Catalog is a Localizer backed by a map.
type Catalog map[string]string

// DefaultCatalog is the English catalog.
var DefaultCatalog = Catalog{
	MsgMultipleDevices: "Send To Mobile Device",
	MsgShare:           "Share",
	MsgSMS:             "Send SMS",
	MsgSinglePlugin:    "$2 via $1",
}

// Message returns the template for key with args substituted, or key
// itself if the catalog has no entry.
func (c Catalog) Message(key string, args ...string) string {
	tmpl, ok := c[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, 2*len(args))
	for i := len(args) - 1; i >= 0; i-- {
		pairs = append(pairs, "$"+strconv.Itoa(i+1), args[i])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
