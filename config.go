package attracker

import (
	"github.com/atinternet/go-tracker/internal/storage"
	"github.com/atinternet/go-tracker/subsystems"
)

// Config exposes the options for creating a Tracker.
//
// All fields are optional except ConfigProvider, which must supply at least the "site", "log"
// and "domain" keys. Fields whose type is a ComponentConfigurer are normally set with the
// builders in the atcomponents package:
//
//	config := attracker.Config{
//	    ConfigProvider: atconfig.Static(values),
//	    Hits:           atcomponents.SendHits().MaxRetryCount(2),
//	    Storage:        atcomponents.OfflineStorage().Compress(true),
//	}
type Config struct {
	// ConfigProvider supplies the key/value configuration. See the Config* constants for the
	// recognized keys.
	ConfigProvider subsystems.ConfigProvider

	// Hits configures delivery. If nil, the default is atcomponents.SendHits().
	Hits subsystems.ComponentConfigurer[subsystems.HitDeliveryConfiguration]

	// Storage configures offline storage. If nil, the default is atcomponents.OfflineStorage().
	Storage subsystems.ComponentConfigurer[subsystems.StorageConfiguration]

	// HTTP configures the network connection. If nil, the default is atcomponents.HTTP().
	HTTP subsystems.ComponentConfigurer[subsystems.HTTPConfiguration]

	// Logging configures logging. If nil, the default is atcomponents.Logging().
	Logging subsystems.ComponentConfigurer[subsystems.LoggingConfiguration]

	// Encryption protects stored hits and identified-visitor settings. If nil, data is stored in
	// clear text. See atcrypto.Age.
	Encryption subsystems.ComponentConfigurer[subsystems.Encryptor]

	// LiveTagging mirrors every hit to a debugging console. If nil, hits are not mirrored. See
	// atlive.Console.
	LiveTagging subsystems.ComponentConfigurer[subsystems.LiveTaggingSink]

	// Metrics supplies life-cycle metrics and crash reports. If nil, the tracker computes
	// life-cycle metrics itself from its durable settings.
	Metrics subsystems.MetricsProvider

	// BackgroundTasks grants the tracker time to flush offline hits when the application moves
	// to the background. If nil, OnBackground drains without a time limit.
	BackgroundTasks subsystems.BackgroundTaskHost

	// Delegate receives notifications about hits. Calls are asynchronous.
	Delegate subsystems.Delegate

	// TechnicalContext overrides the device and application facts carried by every hit. Fields
	// left empty come from the configuration keys, then from the runtime.
	TechnicalContext TechnicalContext

	location *storage.Location
}

// TechnicalContext describes the device and application. Any field may be left empty.
type TechnicalContext struct {
	Language              string
	DeviceModel           string
	OSName                string
	OSVersion             string
	ApplicationIdentifier string
	ApplicationVersion    string
	ScreenResolution      string
	Carrier               string
	ConnectionType        string
	UserAgent             string
}

// Keys of the tracker's key/value configuration.
const (
	ConfigLog                      = "log"
	ConfigLogSSL                   = "logSSL"
	ConfigDomain                   = "domain"
	ConfigPixelPath                = "pixelPath"
	ConfigSite                     = "site"
	ConfigSecure                   = "secure"
	ConfigIdentifier               = "identifier"
	ConfigStorage                  = "storage"
	ConfigStorageDuration          = "storageDuration"
	ConfigCampaignLifetime         = "campaignLifetime"
	ConfigCampaignLastPersistence  = "campaignLastPersistence"
	ConfigPersistIdentifiedVisitor = "persistIdentifiedVisitor"
	ConfigDownloadSource           = "downloadSource"
	ConfigLevel2                   = "level2"
	ConfigMaxRetryCount            = "maxRetryCount"
	ConfigEnableCrashDetection     = "enableCrashDetection"
	ConfigUserAgent                = "userAgent"
	ConfigApplicationIdentifier    = "applicationIdentifier"
	ConfigApplicationVersion       = "applicationVersion"
	ConfigLanguage                 = "language"
	ConfigDeviceModel              = "deviceModel"
	ConfigScreenResolution         = "screenResolution"
	ConfigCarrier                  = "carrier"
	ConfigConnectionType           = "connectionType"
	ConfigClientID                 = "clientId"
)
