package protocol

// CMsgClientHello is the first message sent once the channel is
// encrypted. Grounded on steamclient.Connect.
type CMsgClientHello struct {
	ProtocolVersion *uint32
}

func (m *CMsgClientHello) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint32(b, 1, m.ProtocolVersion)
	return b, nil
}

func (m *CMsgClientHello) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		if num == 1 {
			v := uint32(varintVal(val))
			m.ProtocolVersion = &v
		}
	}
	return nil
}

// CMsgClientLogon covers both the teacher's refresh-token logon and the
// classic RSA-wrapped password logon added for the expanded spec's
// §4.G auth pipeline.
type CMsgClientLogon struct {
	AccountName            *string
	AccessToken            *string
	Password               *string
	TwoFactorCode          *string
	ShaSentryfile          []byte
	ShouldRememberPassword *bool
	ProtocolVersion        *uint32
	ClientOsType           *int32
	ClientLanguage         *string
}

func (m *CMsgClientLogon) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptString(b, 1, m.AccountName)
	b = appendOptString(b, 2, m.AccessToken)
	b = appendOptString(b, 3, m.Password)
	b = appendOptString(b, 4, m.TwoFactorCode)
	b = appendOptBytes(b, 5, m.ShaSentryfile)
	b = appendOptBool(b, 6, m.ShouldRememberPassword)
	b = appendOptUint32(b, 7, m.ProtocolVersion)
	b = appendOptInt32(b, 8, m.ClientOsType)
	b = appendOptString(b, 9, m.ClientLanguage)
	return b, nil
}

func (m *CMsgClientLogon) Unmarshal(b []byte) error {
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
			m.AccessToken = &v
		case 3:
			v := string(val)
			m.Password = &v
		case 4:
			v := string(val)
			m.TwoFactorCode = &v
		case 5:
			m.ShaSentryfile = append([]byte(nil), val...)
		case 6:
			v := varintVal(val) != 0
			m.ShouldRememberPassword = &v
		case 7:
			v := uint32(varintVal(val))
			m.ProtocolVersion = &v
		case 8:
			v := int32(varintVal(val))
			m.ClientOsType = &v
		case 9:
			v := string(val)
			m.ClientLanguage = &v
		}
	}
	return nil
}

// CMsgClientLogonResponse carries the outcome of a logon attempt.
type CMsgClientLogonResponse struct {
	Eresult          *int32
	HeartbeatSeconds *int32
}

func (m *CMsgClientLogonResponse) GetEresult() int32 {
	if m == nil || m.Eresult == nil {
		return 0
	}
	return *m.Eresult
}

func (m *CMsgClientLogonResponse) GetHeartbeatSeconds() int32 {
	if m == nil || m.HeartbeatSeconds == nil {
		return 0
	}
	return *m.HeartbeatSeconds
}

func (m *CMsgClientLogonResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptInt32(b, 1, m.Eresult)
	b = appendOptInt32(b, 2, m.HeartbeatSeconds)
	return b, nil
}

func (m *CMsgClientLogonResponse) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := int32(varintVal(val))
			m.Eresult = &v
		case 2:
			v := int32(varintVal(val))
			m.HeartbeatSeconds = &v
		}
	}
	return nil
}

// CMsgClientLogOff is an empty request: the server identifies the caller
// from the header's steamid/session-id.
type CMsgClientLogOff struct{}

func (m *CMsgClientLogOff) Marshal() ([]byte, error) { return nil, nil }
func (m *CMsgClientLogOff) Unmarshal(b []byte) error { return nil }

// CMsgClientLoggedOff is sent by the server when it is closing the
// session, carrying the reason as an EResult.
type CMsgClientLoggedOff struct {
	Eresult *int32
}

func (m *CMsgClientLoggedOff) GetEresult() int32 {
	if m == nil || m.Eresult == nil {
		return 0
	}
	return *m.Eresult
}

func (m *CMsgClientLoggedOff) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptInt32(b, 1, m.Eresult)
	return b, nil
}

func (m *CMsgClientLoggedOff) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		if num == 1 {
			v := int32(varintVal(val))
			m.Eresult = &v
		}
	}
	return nil
}

// CMsgClientHeartBeat is sent periodically to keep the session alive.
type CMsgClientHeartBeat struct{}

func (m *CMsgClientHeartBeat) Marshal() ([]byte, error) { return nil, nil }
func (m *CMsgClientHeartBeat) Unmarshal(b []byte) error { return nil }

// CMsgClientCMList carries a refreshed CM endpoint list pushed by the
// server (EMsgClientCMList, §6). New for this expansion: the teacher never
// subscribed to this push, relying solely on the one-shot HTTPS directory.
type CMsgClientCMList struct {
	CmAddresses []uint32
	CmPorts     []uint32
}

func (m *CMsgClientCMList) GetCmAddresses() []uint32 { return m.CmAddresses }
func (m *CMsgClientCMList) GetCmPorts() []uint32     { return m.CmPorts }

func (m *CMsgClientCMList) Marshal() ([]byte, error) {
	var b []byte
	for _, a := range m.CmAddresses {
		b = appendOptUint32(b, 1, &a)
	}
	for _, p := range m.CmPorts {
		b = appendOptUint32(b, 2, &p)
	}
	return b, nil
}

func (m *CMsgClientCMList) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			m.CmAddresses = append(m.CmAddresses, uint32(varintVal(val)))
		case 2:
			m.CmPorts = append(m.CmPorts, uint32(varintVal(val)))
		}
	}
	return nil
}

// CMsgClientUpdateMachineAuth is the sentry-file challenge the server
// issues on a new device's first logon (§4.G). New for this expansion.
type CMsgClientUpdateMachineAuth struct {
	Bytes    []byte
	Filename *string
	Offset   *uint32
	Cubtowrite *uint32
}

func (m *CMsgClientUpdateMachineAuth) GetBytes() []byte      { return m.Bytes }
func (m *CMsgClientUpdateMachineAuth) GetOffset() uint32 {
	if m == nil || m.Offset == nil {
		return 0
	}
	return *m.Offset
}

func (m *CMsgClientUpdateMachineAuth) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptBytes(b, 1, m.Bytes)
	b = appendOptString(b, 2, m.Filename)
	b = appendOptUint32(b, 3, m.Offset)
	b = appendOptUint32(b, 4, m.Cubtowrite)
	return b, nil
}

func (m *CMsgClientUpdateMachineAuth) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			m.Bytes = append([]byte(nil), val...)
		case 2:
			v := string(val)
			m.Filename = &v
		case 3:
			v := uint32(varintVal(val))
			m.Offset = &v
		case 4:
			v := uint32(varintVal(val))
			m.Cubtowrite = &v
		}
	}
	return nil
}

// CMsgClientUpdateMachineAuthResponse is the client's reply to the sentry
// challenge, carrying the SHA-1 hash of the blob it was given.
type CMsgClientUpdateMachineAuthResponse struct {
	ShaFile *[]byte
	Eresult *int32
}

func (m *CMsgClientUpdateMachineAuthResponse) Marshal() ([]byte, error) {
	var b []byte
	if m.ShaFile != nil {
		b = appendOptBytes(b, 1, *m.ShaFile)
	}
	b = appendOptInt32(b, 2, m.Eresult)
	return b, nil
}

func (m *CMsgClientUpdateMachineAuthResponse) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := append([]byte(nil), val...)
			m.ShaFile = &v
		case 2:
			v := int32(varintVal(val))
			m.Eresult = &v
		}
	}
	return nil
}

// CMsgClientRequestWebAPIAuthenticateUserNonce requests a one-time nonce
// used to mint steamLogin/steamLoginSecure cookies (§4.G step 5).
type CMsgClientRequestWebAPIAuthenticateUserNonce struct{}

func (m *CMsgClientRequestWebAPIAuthenticateUserNonce) Marshal() ([]byte, error) { return nil, nil }
func (m *CMsgClientRequestWebAPIAuthenticateUserNonce) Unmarshal(b []byte) error { return nil }

// CMsgClientRequestWebAPIAuthenticateUserNonceResponse carries the nonce.
type CMsgClientRequestWebAPIAuthenticateUserNonceResponse struct {
	Eresult *int32
	Webapiauthenticateusernonce *string
}

func (m *CMsgClientRequestWebAPIAuthenticateUserNonceResponse) GetEresult() int32 {
	if m == nil || m.Eresult == nil {
		return 0
	}
	return *m.Eresult
}

func (m *CMsgClientRequestWebAPIAuthenticateUserNonceResponse) GetNonce() string {
	if m == nil || m.Webapiauthenticateusernonce == nil {
		return ""
	}
	return *m.Webapiauthenticateusernonce
}

func (m *CMsgClientRequestWebAPIAuthenticateUserNonceResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptInt32(b, 1, m.Eresult)
	b = appendOptString(b, 2, m.Webapiauthenticateusernonce)
	return b, nil
}

func (m *CMsgClientRequestWebAPIAuthenticateUserNonceResponse) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := int32(varintVal(val))
			m.Eresult = &v
		case 2:
			v := string(val)
			m.Webapiauthenticateusernonce = &v
		}
	}
	return nil
}
