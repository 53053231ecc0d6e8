package attracker

import (
	"strconv"

	"github.com/atinternet/go-tracker/internal/dispatcher"
	"github.com/atinternet/go-tracker/internal/param"
	"github.com/atinternet/go-tracker/internal/storage"
)

// IdentifiedVisitor attaches a visitor id to every hit. Obtain it with Tracker.IdentifiedVisitor.
//
// When the configuration key "persistIdentifiedVisitor" is "true", the id is kept in durable
// settings, encrypted when an Encryptor is configured, and survives restarts. Otherwise it lasts
// for the life of the tracker.
type IdentifiedVisitor struct {
	tracker *Tracker
}

// IdentifiedVisitor returns the tracker's identified visitor.
func (t *Tracker) IdentifiedVisitor() *IdentifiedVisitor {
	return &IdentifiedVisitor{tracker: t}
}

// SetNumeric identifies the visitor with a numeric id.
func (v *IdentifiedVisitor) SetNumeric(id int) {
	v.set(dispatcher.KeyVisitorNumeric, strconv.Itoa(id), nil)
}

// SetNumericWithCategory identifies the visitor with a numeric id and a category.
func (v *IdentifiedVisitor) SetNumericWithCategory(id, category int) {
	v.set(dispatcher.KeyVisitorNumeric, strconv.Itoa(id), &category)
}

// SetText identifies the visitor with a textual id.
func (v *IdentifiedVisitor) SetText(id string) {
	v.set(dispatcher.KeyVisitorText, id, nil)
}

// SetTextWithCategory identifies the visitor with a textual id and a category.
func (v *IdentifiedVisitor) SetTextWithCategory(id string, category int) {
	v.set(dispatcher.KeyVisitorText, id, &category)
}

// Unset forgets the visitor.
func (v *IdentifiedVisitor) Unset() {
	t := v.tracker
	for _, key := range []string{dispatcher.KeyVisitorNumeric, dispatcher.KeyVisitorText, dispatcher.KeyVisitorCategory} {
		t.buffer.Unset(key)
	}
	for _, setting := range []string{storage.SettingVisitorNumeric, storage.SettingVisitorText, storage.SettingVisitorCategory} {
		if err := t.settings.Delete(setting); err != nil {
			t.loggers.Errorf("Unable to delete identified visitor: %s", err)
		}
	}
}

func (v *IdentifiedVisitor) set(key, id string, category *int) {
	t := v.tracker
	v.Unset()
	if !t.privacy.storageAllowed() {
		t.warn("The visitor cannot be identified in the current privacy mode")
		return
	}
	if !t.persistVisitor {
		options := param.PersistentOptions()
		if key == dispatcher.KeyVisitorText {
			options = param.PersistentEncodedOptions()
		}
		t.buffer.Set(param.New(key, id, options))
		if category != nil {
			t.buffer.Set(param.New(dispatcher.KeyVisitorCategory, strconv.Itoa(*category), param.PersistentOptions()))
		}
		return
	}
	setting := storage.SettingVisitorNumeric
	if key == dispatcher.KeyVisitorText {
		setting = storage.SettingVisitorText
	}
	v.store(setting, id)
	if category != nil {
		v.store(storage.SettingVisitorCategory, strconv.Itoa(*category))
	}
}

func (v *IdentifiedVisitor) store(setting, value string) {
	t := v.tracker
	if t.encryptor != nil {
		encrypted, err := t.encryptor.Encrypt(value)
		if err != nil {
			t.loggers.Errorf("Unable to encrypt identified visitor: %s", err)
			return
		}
		value = encrypted
	}
	if err := t.settings.Set(setting, value); err != nil {
		t.loggers.Errorf("Unable to save identified visitor: %s", err)
	}
}
