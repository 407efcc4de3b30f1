package protocol

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Messages for the IAuthenticationService unified-RPC surface used by
// steamsession (credentials login) and steamclient.auth.go (app token
// refresh).

func appendOptGuardType(b []byte, num protowire.Number, v *EAuthSessionGuardType) []byte {
	if v == nil {
		return b
	}
	iv := int32(*v)
	return appendOptInt32(b, num, &iv)
}

func appendOptPlatformType(b []byte, num protowire.Number, v *EAuthTokenPlatformType) []byte {
	if v == nil {
		return b
	}
	iv := int32(*v)
	return appendOptInt32(b, num, &iv)
}

func appendOptPersistence(b []byte, num protowire.Number, v *ESessionPersistence) []byte {
	if v == nil {
		return b
	}
	iv := int32(*v)
	return appendOptInt32(b, num, &iv)
}

// CAuthentication_DeviceDetails describes the calling device/browser.
type CAuthentication_DeviceDetails struct {
	DeviceFriendlyName *string
	PlatformType       *EAuthTokenPlatformType
}

func (m *CAuthentication_DeviceDetails) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptString(b, 1, m.DeviceFriendlyName)
	b = appendOptPlatformType(b, 2, m.PlatformType)
	return b, nil
}

func (m *CAuthentication_DeviceDetails) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := string(val)
			m.DeviceFriendlyName = &v
		case 2:
			v := EAuthTokenPlatformType(int32(varintVal(val)))
			m.PlatformType = &v
		}
	}
	return nil
}

// CAuthentication_GetPasswordRSAPublicKey_Request asks for the RSA
// modulus/exponent to encrypt a password under for a given account name.
type CAuthentication_GetPasswordRSAPublicKey_Request struct {
	AccountName *string
}

func (m *CAuthentication_GetPasswordRSAPublicKey_Request) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptString(b, 1, m.AccountName)
	return b, nil
}

func (m *CAuthentication_GetPasswordRSAPublicKey_Request) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		if num == 1 {
			v := string(val)
			m.AccountName = &v
		}
	}
	return nil
}

// CAuthentication_GetPasswordRSAPublicKey_Response carries the key.
type CAuthentication_GetPasswordRSAPublicKey_Response struct {
	PublickeyMod *string
	PublickeyExp *string
	Timestamp    *uint64
}

func (m *CAuthentication_GetPasswordRSAPublicKey_Response) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptString(b, 1, m.PublickeyMod)
	b = appendOptString(b, 2, m.PublickeyExp)
	b = appendOptUint64(b, 3, m.Timestamp)
	return b, nil
}

func (m *CAuthentication_GetPasswordRSAPublicKey_Response) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := string(val)
			m.PublickeyMod = &v
		case 2:
			v := string(val)
			m.PublickeyExp = &v
		case 3:
			v := varintVal(val)
			m.Timestamp = &v
		}
	}
	return nil
}

// CAuthentication_AllowedConfirmation names one guard method the backend
// will accept to complete a session.
type CAuthentication_AllowedConfirmation struct {
	ConfirmationType *EAuthSessionGuardType
}

func (m *CAuthentication_AllowedConfirmation) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptGuardType(b, 1, m.ConfirmationType)
	return b, nil
}

func (m *CAuthentication_AllowedConfirmation) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		if num == 1 {
			v := EAuthSessionGuardType(int32(varintVal(val)))
			m.ConfirmationType = &v
		}
	}
	return nil
}

// CAuthentication_BeginAuthSessionViaCredentials_Request starts a login
// session with a username and RSA-wrapped password.
type CAuthentication_BeginAuthSessionViaCredentials_Request struct {
	AccountName         *string
	EncryptedPassword   *string
	EncryptionTimestamp *uint64
	RememberLogin       *bool
	Persistence         *ESessionPersistence
	WebsiteId           *string
	DeviceDetails       *CAuthentication_DeviceDetails
	Language            *uint32
}

func (m *CAuthentication_BeginAuthSessionViaCredentials_Request) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptString(b, 1, m.AccountName)
	b = appendOptString(b, 2, m.EncryptedPassword)
	b = appendOptUint64(b, 3, m.EncryptionTimestamp)
	b = appendOptBool(b, 4, m.RememberLogin)
	b = appendOptPersistence(b, 5, m.Persistence)
	b = appendOptString(b, 6, m.WebsiteId)
	b = appendMessage(b, 7, m.DeviceDetails)
	b = appendOptUint32(b, 8, m.Language)
	return b, nil
}

func (m *CAuthentication_BeginAuthSessionViaCredentials_Request) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := string(val)
			m.AccountName = &v
		case 2:
			v := string(val)
			m.EncryptedPassword = &v
		case 3:
			v := varintVal(val)
			m.EncryptionTimestamp = &v
		case 4:
			v := varintVal(val) != 0
			m.RememberLogin = &v
		case 5:
			v := ESessionPersistence(int32(varintVal(val)))
			m.Persistence = &v
		case 6:
			v := string(val)
			m.WebsiteId = &v
		case 7:
			d := &CAuthentication_DeviceDetails{}
			if err := d.Unmarshal(val); err != nil {
				return err
			}
			m.DeviceDetails = d
		case 8:
			v := uint32(varintVal(val))
			m.Language = &v
		}
	}
	return nil
}

// CAuthentication_BeginAuthSessionViaCredentials_Response describes the
// session that was opened and which guard methods it still needs.
type CAuthentication_BeginAuthSessionViaCredentials_Response struct {
	ClientId             *uint64
	RequestId            []byte
	Interval             *float32
	AllowedConfirmations []*CAuthentication_AllowedConfirmation
	WeakToken            *string
	Steamid              *uint64
}

func (m *CAuthentication_BeginAuthSessionViaCredentials_Response) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint64(b, 1, m.ClientId)
	b = appendOptBytes(b, 2, m.RequestId)
	b = appendOptFloat32(b, 3, m.Interval)
	for _, c := range m.AllowedConfirmations {
		b = appendMessage(b, 4, c)
	}
	b = appendOptString(b, 5, m.WeakToken)
	b = appendOptUint64(b, 6, m.Steamid)
	return b, nil
}

func (m *CAuthentication_BeginAuthSessionViaCredentials_Response) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := varintVal(val)
			m.ClientId = &v
		case 2:
			m.RequestId = append([]byte(nil), val...)
		case 3:
			v := math.Float32frombits(fixed32Val(val))
			m.Interval = &v
		case 4:
			c := &CAuthentication_AllowedConfirmation{}
			if err := c.Unmarshal(val); err != nil {
				return err
			}
			m.AllowedConfirmations = append(m.AllowedConfirmations, c)
		case 5:
			v := string(val)
			m.WeakToken = &v
		case 6:
			v := varintVal(val)
			m.Steamid = &v
		default:
			_ = typ
		}
	}
	return nil
}

// CAuthentication_UpdateAuthSessionWithSteamGuardCode_Request submits a
// guard code (email, TOTP, ...) to approve a pending session.
type CAuthentication_UpdateAuthSessionWithSteamGuardCode_Request struct {
	ClientId *uint64
	Steamid  *uint64
	Code     *string
	CodeType *EAuthSessionGuardType
}

func (m *CAuthentication_UpdateAuthSessionWithSteamGuardCode_Request) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint64(b, 1, m.ClientId)
	b = appendOptUint64(b, 2, m.Steamid)
	b = appendOptString(b, 3, m.Code)
	b = appendOptGuardType(b, 4, m.CodeType)
	return b, nil
}

func (m *CAuthentication_UpdateAuthSessionWithSteamGuardCode_Request) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := varintVal(val)
			m.ClientId = &v
		case 2:
			v := varintVal(val)
			m.Steamid = &v
		case 3:
			v := string(val)
			m.Code = &v
		case 4:
			v := EAuthSessionGuardType(int32(varintVal(val)))
			m.CodeType = &v
		}
	}
	return nil
}

// CAuthentication_PollAuthSessionStatus_Request polls a session awaiting
// guard confirmation for completion.
type CAuthentication_PollAuthSessionStatus_Request struct {
	ClientId  *uint64
	RequestId []byte
}

func (m *CAuthentication_PollAuthSessionStatus_Request) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint64(b, 1, m.ClientId)
	b = appendOptBytes(b, 2, m.RequestId)
	return b, nil
}

func (m *CAuthentication_PollAuthSessionStatus_Request) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := varintVal(val)
			m.ClientId = &v
		case 2:
			m.RequestId = append([]byte(nil), val...)
		}
	}
	return nil
}

// CAuthentication_PollAuthSessionStatus_Response carries the minted
// tokens once the session is approved.
type CAuthentication_PollAuthSessionStatus_Response struct {
	AccessToken  *string
	RefreshToken *string
}

func (m *CAuthentication_PollAuthSessionStatus_Response) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptString(b, 1, m.AccessToken)
	b = appendOptString(b, 2, m.RefreshToken)
	return b, nil
}

func (m *CAuthentication_PollAuthSessionStatus_Response) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := string(val)
			m.AccessToken = &v
		case 2:
			v := string(val)
			m.RefreshToken = &v
		}
	}
	return nil
}

// CAuthentication_AccessToken_GenerateForApp_Request asks the CM to mint
// a fresh access token (and optionally refresh token) for a given
// refresh token, over the CM socket rather than the web API.
type CAuthentication_AccessToken_GenerateForApp_Request struct {
	RefreshToken *string
	Steamid      *uint64
}

func (m *CAuthentication_AccessToken_GenerateForApp_Request) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptString(b, 1, m.RefreshToken)
	b = appendOptUint64(b, 2, m.Steamid)
	return b, nil
}

func (m *CAuthentication_AccessToken_GenerateForApp_Request) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := string(val)
			m.RefreshToken = &v
		case 2:
			v := varintVal(val)
			m.Steamid = &v
		}
	}
	return nil
}

// CAuthentication_AccessToken_GenerateForApp_Response carries the minted
// tokens.
type CAuthentication_AccessToken_GenerateForApp_Response struct {
	AccessToken  *string
	RefreshToken *string
}

func (m *CAuthentication_AccessToken_GenerateForApp_Response) GetAccessToken() string {
	if m == nil || m.AccessToken == nil {
		return ""
	}
	return *m.AccessToken
}

func (m *CAuthentication_AccessToken_GenerateForApp_Response) GetRefreshToken() string {
	if m == nil || m.RefreshToken == nil {
		return ""
	}
	return *m.RefreshToken
}

func (m *CAuthentication_AccessToken_GenerateForApp_Response) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptString(b, 1, m.AccessToken)
	b = appendOptString(b, 2, m.RefreshToken)
	return b, nil
}

func (m *CAuthentication_AccessToken_GenerateForApp_Response) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := string(val)
			m.AccessToken = &v
		case 2:
			v := string(val)
			m.RefreshToken = &v
		}
	}
	return nil
}
