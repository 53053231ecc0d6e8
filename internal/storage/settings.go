package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldtime"
	"github.com/patrickmn/go-cache"
)

// Keys of the durable settings.
const (
	SettingCampaign            = "ATCampaign"
	SettingCampaignDate        = "ATCampaignDate"
	SettingCampaignAdded       = "ATCampaignAdded"
	SettingVisitorNumeric      = "ATIdentifiedVisitorNumeric"
	SettingVisitorText         = "ATIdentifiedVisitorText"
	SettingVisitorCategory     = "ATIdentifiedVisitorCategory"
	SettingFirstSessionDate    = "ATFirstLaunchDate"
	SettingLastSessionDate     = "ATLastUse"
	SettingPreviousSessionDate = "ATPreviousUse"
	SettingSessionCount        = "ATLaunchCount"
	SettingSessionCountVersion = "ATLaunchCountSinceUpdate"
	SettingVersion             = "ATApplicationVersion"
	SettingVersionDate         = "ATApplicationVersionDate"
	SettingCrash               = "ATCrash"
	SettingPrivacyMode         = "ATPrivacyMode"
	SettingPrivacyExpiration   = "ATPrivacyModeExpirationTimestamp"
	SettingClientID            = "ATIdclient"
)

const (
	settingsCacheTTL     = 5 * time.Minute
	settingsCacheCleanup = 10 * time.Minute
)

// absent is cached for keys known not to exist.
type absent struct{}

// Settings is a durable string key/value map fronted by an in-memory cache. A Settings with no
// database keeps values in memory only.
type Settings struct {
	db      *Database
	cache   *cache.Cache
	loggers ldlog.Loggers
}

// NewSettings returns Settings stored in db.
func NewSettings(db *Database, loggers ldlog.Loggers) *Settings {
	return &Settings{db: db, cache: cache.New(settingsCacheTTL, settingsCacheCleanup), loggers: loggers}
}

// NewMemorySettings returns Settings that are lost when the process exits.
func NewMemorySettings(loggers ldlog.Loggers) *Settings {
	return &Settings{cache: cache.New(cache.NoExpiration, 0), loggers: loggers}
}

// Get returns the value for key.
func (s *Settings) Get(key string) (string, bool) {
	if cached, found := s.cache.Get(key); found {
		if value, ok := cached.(string); ok {
			return value, true
		}
		return "", false
	}
	if s.db == nil {
		return "", false
	}
	var value string
	if err := s.db.get("get-setting", &value, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.cache.Set(key, absent{}, cache.DefaultExpiration)
		} else {
			s.loggers.Errorf("Unable to read setting %q: %s", key, err)
		}
		return "", false
	}
	s.cache.Set(key, value, cache.DefaultExpiration)
	return value, true
}

// Set stores value under key.
func (s *Settings) Set(key, value string) error {
	if s.db != nil {
		if _, err := s.db.exec("put-setting", key, value, int64(ldtime.UnixMillisNow())); err != nil {
			s.cache.Delete(key)
			return err
		}
	}
	s.cache.Set(key, value, cache.DefaultExpiration)
	return nil
}

// Delete removes key.
func (s *Settings) Delete(key string) error {
	if s.db != nil {
		if _, err := s.db.exec("delete-setting", key); err != nil {
			s.cache.Delete(key)
			return err
		}
		s.cache.Set(key, absent{}, cache.DefaultExpiration)
		return nil
	}
	s.cache.Delete(key)
	return nil
}
