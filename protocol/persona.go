package protocol

// CMsgClientChangeStatus sets the logged-in user's persona state.
type CMsgClientChangeStatus struct {
	PersonaState     *uint32
	PersonaSetByUser *bool
}

func (m *CMsgClientChangeStatus) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint32(b, 1, m.PersonaState)
	b = appendOptBool(b, 2, m.PersonaSetByUser)
	return b, nil
}

func (m *CMsgClientChangeStatus) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := uint32(varintVal(val))
			m.PersonaState = &v
		case 2:
			v := varintVal(val) != 0
			m.PersonaSetByUser = &v
		}
	}
	return nil
}

// CMsgClientPersonaState_Friend is one entry in a persona-state push.
type CMsgClientPersonaState_Friend struct {
	Friendid        *uint64
	PersonaState    *uint32
	PlayerName_     *string
	GamePlayedAppId *uint32
	GameName_       *string
	LastLogoff_     *uint32
	LastLogon_      *uint32
}

func (m *CMsgClientPersonaState_Friend) GetFriendid() uint64 {
	if m == nil || m.Friendid == nil {
		return 0
	}
	return *m.Friendid
}
func (m *CMsgClientPersonaState_Friend) GetPersonaState() uint32 {
	if m == nil || m.PersonaState == nil {
		return 0
	}
	return *m.PersonaState
}
func (m *CMsgClientPersonaState_Friend) GetPlayerName() string {
	if m == nil || m.PlayerName_ == nil {
		return ""
	}
	return *m.PlayerName_
}
func (m *CMsgClientPersonaState_Friend) GetGamePlayedAppId() uint32 {
	if m == nil || m.GamePlayedAppId == nil {
		return 0
	}
	return *m.GamePlayedAppId
}
func (m *CMsgClientPersonaState_Friend) GetGameName() string {
	if m == nil || m.GameName_ == nil {
		return ""
	}
	return *m.GameName_
}
func (m *CMsgClientPersonaState_Friend) GetLastLogoff() uint32 {
	if m == nil || m.LastLogoff_ == nil {
		return 0
	}
	return *m.LastLogoff_
}
func (m *CMsgClientPersonaState_Friend) GetLastLogon() uint32 {
	if m == nil || m.LastLogon_ == nil {
		return 0
	}
	return *m.LastLogon_
}

func (m *CMsgClientPersonaState_Friend) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint64(b, 1, m.Friendid)
	b = appendOptUint32(b, 2, m.PersonaState)
	b = appendOptString(b, 3, m.PlayerName_)
	b = appendOptUint32(b, 4, m.GamePlayedAppId)
	b = appendOptString(b, 5, m.GameName_)
	b = appendOptUint32(b, 6, m.LastLogoff_)
	b = appendOptUint32(b, 7, m.LastLogon_)
	return b, nil
}

func (m *CMsgClientPersonaState_Friend) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := varintVal(val)
			m.Friendid = &v
		case 2:
			v := uint32(varintVal(val))
			m.PersonaState = &v
		case 3:
			v := string(val)
			m.PlayerName_ = &v
		case 4:
			v := uint32(varintVal(val))
			m.GamePlayedAppId = &v
		case 5:
			v := string(val)
			m.GameName_ = &v
		case 6:
			v := uint32(varintVal(val))
			m.LastLogoff_ = &v
		case 7:
			v := uint32(varintVal(val))
			m.LastLogon_ = &v
		}
	}
	return nil
}

// CMsgClientPersonaState is pushed when watched users' presence changes.
type CMsgClientPersonaState struct {
	StatusFlags *uint32
	Friends     []*CMsgClientPersonaState_Friend
}

func (m *CMsgClientPersonaState) GetStatusFlags() uint32 {
	if m == nil || m.StatusFlags == nil {
		return 0
	}
	return *m.StatusFlags
}

func (m *CMsgClientPersonaState) GetFriends() []*CMsgClientPersonaState_Friend {
	if m == nil {
		return nil
	}
	return m.Friends
}

func (m *CMsgClientPersonaState) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint32(b, 1, m.StatusFlags)
	for _, f := range m.Friends {
		b = appendMessage(b, 2, f)
	}
	return b, nil
}

func (m *CMsgClientPersonaState) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := uint32(varintVal(val))
			m.StatusFlags = &v
		case 2:
			f := &CMsgClientPersonaState_Friend{}
			if err := f.Unmarshal(val); err != nil {
				return err
			}
			m.Friends = append(m.Friends, f)
		}
	}
	return nil
}
