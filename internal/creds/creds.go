package creds

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"go.mau.fi/whatsmeow/proto/waAdv"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/util/keys"
	"google.golang.org/protobuf/proto"
)

type KeyPair struct {
	Private []byte `json:"private"`
	Public  []byte `json:"public"`
}

type SignedKeyPair struct {
	KeyPair   KeyPair `json:"keyPair"`
	Signature []byte  `json:"signature"`
	KeyID     uint32  `json:"keyId"`
}

type Me struct {
	ID   string `json:"id"`
	LID  string `json:"lid,omitempty"`
	Name string `json:"name,omitempty"`
}

// Credentials is the JSON layout of creds.json: the long-lived keys and
// identity a linked device needs to reconnect without pairing again.
type Credentials struct {
	NoiseKey          KeyPair       `json:"noiseKey"`
	SignedIdentityKey KeyPair       `json:"signedIdentityKey"`
	SignedPreKey      SignedKeyPair `json:"signedPreKey"`
	RegistrationID    uint32        `json:"registrationId"`
	AdvSecretKey      []byte        `json:"advSecretKey"`
	Me                *Me           `json:"me,omitempty"`
	Account           []byte        `json:"account,omitempty"`
	Platform          string        `json:"platform,omitempty"`
	BusinessName      string        `json:"businessName,omitempty"`
}

// Parse decodes and validates a credential blob.
func Parse(raw []byte) (*Credentials, error) {
	var c Credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errors.Wrap(err, "decode credentials")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Credentials) Marshal() ([]byte, error) {
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode credentials")
	}
	return raw, nil
}

func (c *Credentials) Validate() error {
	for name, kp := range map[string]KeyPair{
		"noiseKey":          c.NoiseKey,
		"signedIdentityKey": c.SignedIdentityKey,
		"signedPreKey":      c.SignedPreKey.KeyPair,
	} {
		if len(kp.Private) != 32 || len(kp.Public) != 32 {
			return errors.Errorf("credentials %s must hold 32 byte keys", name)
		}
	}
	if len(c.SignedPreKey.Signature) != 64 {
		return errors.New("credentials signedPreKey signature must be 64 bytes")
	}
	if len(c.AdvSecretKey) != 32 {
		return errors.New("credentials advSecretKey must be 32 bytes")
	}
	if _, err := c.JID(); err != nil {
		return err
	}
	return nil
}

// JID is the linked device's own address.
func (c *Credentials) JID() (types.JID, error) {
	if c.Me == nil || c.Me.ID == "" {
		return types.EmptyJID, errors.New("credentials are not paired: me.id is missing")
	}
	jid, err := types.ParseJID(c.Me.ID)
	if err != nil {
		return types.EmptyJID, errors.Wrap(err, "parse me.id")
	}
	return jid, nil
}

// FromDevice captures the credentials of a paired device.
func FromDevice(d *store.Device) (*Credentials, error) {
	if d == nil || d.ID == nil {
		return nil, errors.New("device is not paired")
	}

	c := &Credentials{
		NoiseKey:          fromKeyPair(d.NoiseKey),
		SignedIdentityKey: fromKeyPair(d.IdentityKey),
		RegistrationID:    d.RegistrationID,
		AdvSecretKey:      append([]byte(nil), d.AdvSecretKey...),
		Me:                &Me{ID: d.ID.String(), Name: d.PushName},
		Platform:          d.Platform,
		BusinessName:      d.BusinessName,
	}
	if !d.LID.IsEmpty() {
		c.Me.LID = d.LID.String()
	}
	if d.SignedPreKey != nil {
		c.SignedPreKey = SignedKeyPair{
			KeyPair: fromKeyPair(&d.SignedPreKey.KeyPair),
			KeyID:   d.SignedPreKey.KeyID,
		}
		if d.SignedPreKey.Signature != nil {
			c.SignedPreKey.Signature = append([]byte(nil), d.SignedPreKey.Signature[:]...)
		}
	}
	if d.Account != nil {
		account, err := proto.Marshal(d.Account)
		if err != nil {
			return nil, errors.Wrap(err, "encode account identity")
		}
		c.Account = account
	}
	return c, nil
}

// Apply overwrites the identity of d with c.
func (c *Credentials) Apply(d *store.Device) error {
	if err := c.Validate(); err != nil {
		return err
	}
	jid, _ := c.JID()

	d.NoiseKey = toKeyPair(c.NoiseKey)
	d.IdentityKey = toKeyPair(c.SignedIdentityKey)

	var signature [64]byte
	copy(signature[:], c.SignedPreKey.Signature)
	d.SignedPreKey = &keys.PreKey{
		KeyPair:   *toKeyPair(c.SignedPreKey.KeyPair),
		KeyID:     c.SignedPreKey.KeyID,
		Signature: &signature,
	}

	d.RegistrationID = c.RegistrationID
	d.AdvSecretKey = append([]byte(nil), c.AdvSecretKey...)
	d.ID = &jid
	d.Platform = c.Platform
	d.BusinessName = c.BusinessName
	d.PushName = c.Me.Name

	d.LID = types.EmptyJID
	if c.Me.LID != "" {
		lid, err := types.ParseJID(c.Me.LID)
		if err != nil {
			return errors.Wrap(err, "parse me.lid")
		}
		d.LID = lid
	}

	d.Account = nil
	if len(c.Account) > 0 {
		var account waAdv.ADVSignedDeviceIdentity
		if err := proto.Unmarshal(c.Account, &account); err != nil {
			return errors.Wrap(err, "decode account identity")
		}
		d.Account = &account
	}
	return nil
}

// Restore returns the datastore device for c, creating it when the datastore
// has never seen this account.
func Restore(ctx context.Context, container *sqlstore.Container, c *Credentials) (*store.Device, error) {
	jid, err := c.JID()
	if err != nil {
		return nil, err
	}

	device, err := container.GetDevice(ctx, jid)
	if err != nil {
		return nil, errors.Wrapf(err, "look up device %s", jid)
	}
	if device != nil {
		return device, nil
	}

	device = container.NewDevice()
	if err := c.Apply(device); err != nil {
		return nil, err
	}
	if err := container.PutDevice(ctx, device); err != nil {
		return nil, errors.Wrapf(err, "store device %s", jid)
	}
	return device, nil
}

func fromKeyPair(kp *keys.KeyPair) KeyPair {
	if kp == nil || kp.Priv == nil || kp.Pub == nil {
		return KeyPair{}
	}
	return KeyPair{
		Private: append([]byte(nil), kp.Priv[:]...),
		Public:  append([]byte(nil), kp.Pub[:]...),
	}
}

func toKeyPair(kp KeyPair) *keys.KeyPair {
	var priv, pub [32]byte
	copy(priv[:], kp.Private)
	copy(pub[:], kp.Public)
	return &keys.KeyPair{Pub: &pub, Priv: &priv}
}
