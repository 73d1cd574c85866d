package whatsapp

import (
	"runtime"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/store"
	"google.golang.org/protobuf/proto"

	"github.com/gdbrns/go-whatsapp-multibot/pkg/env"
	"github.com/gdbrns/go-whatsapp-multibot/pkg/log"
)

var devicePropsOnce sync.Once

// ClientOptions tune a new whatsmeow client.
type ClientOptions struct {
	ProxyURL      string
	AutoReconnect bool
}

// configureDeviceProps sets the companion identity shown in the phone's linked devices list.
func configureDeviceProps() {
	devicePropsOnce.Do(func() {
		store.DeviceProps.Os = proto.String(env.GetEnvStringOrDefault("WHATSAPP_DEVICE_NAME", "KENTECH MULTIBOT"))
		store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()
		store.DeviceProps.RequireFullSync = proto.Bool(false)

		if major, err := env.GetEnvInt("WHATSAPP_VERSION_MAJOR"); err == nil {
			store.DeviceProps.Version.Primary = proto.Uint32(uint32(major))
		}
		if minor, err := env.GetEnvInt("WHATSAPP_VERSION_MINOR"); err == nil {
			store.DeviceProps.Version.Secondary = proto.Uint32(uint32(minor))
		}
		if patch, err := env.GetEnvInt("WHATSAPP_VERSION_PATCH"); err == nil {
			store.DeviceProps.Version.Tertiary = proto.Uint32(uint32(patch))
		}
	})
}

// NewClient builds a client for device without connecting it.
func NewClient(device *store.Device, opts ClientOptions) *whatsmeow.Client {
	configureDeviceProps()

	client := whatsmeow.NewClient(device, log.WA("Client"))
	if opts.ProxyURL == "" {
		opts.ProxyURL = env.GetEnvStringOrDefault("WHATSAPP_CLIENT_PROXY_URL", "")
	}
	if opts.ProxyURL != "" {
		if err := client.SetProxyAddress(opts.ProxyURL); err != nil {
			log.Bot().WithError(err).Warn("Ignoring invalid WhatsApp proxy address")
		}
	}

	client.EnableAutoReconnect = opts.AutoReconnect
	client.AutoTrustIdentity = true
	return client
}

// PairClientName is the browser label shown when pairing by phone code.
func PairClientName() string {
	return "Chrome (" + runtime.GOOS + ")"
}
