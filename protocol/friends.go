package protocol

// CMsgClientAddFriend requests adding a Steam user as a friend.
type CMsgClientAddFriend struct {
	SteamidToAdd *uint64
}

func (m *CMsgClientAddFriend) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint64(b, 1, m.SteamidToAdd)
	return b, nil
}

func (m *CMsgClientAddFriend) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		if num == 1 {
			v := varintVal(val)
			m.SteamidToAdd = &v
		}
	}
	return nil
}

// CMsgClientAddFriendResponse carries the result of an AddFriend request.
type CMsgClientAddFriendResponse struct {
	Eresult          *int32
	SteamIDAdded     *uint64
	PersonaNameAdded *string
}

func (m *CMsgClientAddFriendResponse) GetEresult() int32 {
	if m == nil || m.Eresult == nil {
		return 0
	}
	return *m.Eresult
}

func (m *CMsgClientAddFriendResponse) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptInt32(b, 1, m.Eresult)
	b = appendOptUint64(b, 2, m.SteamIDAdded)
	b = appendOptString(b, 3, m.PersonaNameAdded)
	return b, nil
}

func (m *CMsgClientAddFriendResponse) Unmarshal(b []byte) error {
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
			v := varintVal(val)
			m.SteamIDAdded = &v
		case 3:
			v := string(val)
			m.PersonaNameAdded = &v
		}
	}
	return nil
}

// CMsgClientRemoveFriend requests removing a friend.
type CMsgClientRemoveFriend struct {
	Friendid *uint64
}

func (m *CMsgClientRemoveFriend) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint64(b, 1, m.Friendid)
	return b, nil
}

func (m *CMsgClientRemoveFriend) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		if num == 1 {
			v := varintVal(val)
			m.Friendid = &v
		}
	}
	return nil
}

// CMsgClientFriendsList_Friend is one entry in a friends list push.
type CMsgClientFriendsList_Friend struct {
	Ulfriendid          *uint64
	Efriendrelationship *uint32
}

func (m *CMsgClientFriendsList_Friend) GetUlfriendid() uint64 {
	if m == nil || m.Ulfriendid == nil {
		return 0
	}
	return *m.Ulfriendid
}

func (m *CMsgClientFriendsList_Friend) GetEfriendrelationship() uint32 {
	if m == nil || m.Efriendrelationship == nil {
		return 0
	}
	return *m.Efriendrelationship
}

func (m *CMsgClientFriendsList_Friend) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint64(b, 1, m.Ulfriendid)
	b = appendOptUint32(b, 2, m.Efriendrelationship)
	return b, nil
}

func (m *CMsgClientFriendsList_Friend) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := varintVal(val)
			m.Ulfriendid = &v
		case 2:
			v := uint32(varintVal(val))
			m.Efriendrelationship = &v
		}
	}
	return nil
}

// CMsgClientFriendsList is pushed on login (full) and on relationship
// changes (incremental).
type CMsgClientFriendsList struct {
	Bincremental   *bool
	Friends        []*CMsgClientFriendsList_Friend
	MaxFriendCount *uint32
}

func (m *CMsgClientFriendsList) GetMaxFriendCount() uint32 {
	if m == nil || m.MaxFriendCount == nil {
		return 0
	}
	return *m.MaxFriendCount
}

func (m *CMsgClientFriendsList) GetBincremental() bool {
	if m == nil || m.Bincremental == nil {
		return false
	}
	return *m.Bincremental
}

func (m *CMsgClientFriendsList) GetFriends() []*CMsgClientFriendsList_Friend {
	if m == nil {
		return nil
	}
	return m.Friends
}

func (m *CMsgClientFriendsList) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptBool(b, 1, m.Bincremental)
	for _, f := range m.Friends {
		b = appendMessage(b, 2, f)
	}
	b = appendOptUint32(b, 3, m.MaxFriendCount)
	return b, nil
}

func (m *CMsgClientFriendsList) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := varintVal(val) != 0
			m.Bincremental = &v
		case 2:
			f := &CMsgClientFriendsList_Friend{}
			if err := f.Unmarshal(val); err != nil {
				return err
			}
			m.Friends = append(m.Friends, f)
		case 3:
			v := uint32(varintVal(val))
			m.MaxFriendCount = &v
		}
	}
	return nil
}

// CMsgClientFriendMsg sends a chat message to a friend.
type CMsgClientFriendMsg struct {
	Steamid       *uint64
	ChatEntryType *int32
	Message       []byte
}

func (m *CMsgClientFriendMsg) GetSteamid() uint64 {
	if m == nil || m.Steamid == nil {
		return 0
	}
	return *m.Steamid
}

func (m *CMsgClientFriendMsg) GetChatEntryType() int32 {
	if m == nil || m.ChatEntryType == nil {
		return 0
	}
	return *m.ChatEntryType
}

func (m *CMsgClientFriendMsg) GetMessage() []byte { return m.Message }

func (m *CMsgClientFriendMsg) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint64(b, 1, m.Steamid)
	b = appendOptInt32(b, 2, m.ChatEntryType)
	b = appendOptBytes(b, 3, m.Message)
	return b, nil
}

func (m *CMsgClientFriendMsg) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := varintVal(val)
			m.Steamid = &v
		case 2:
			v := int32(varintVal(val))
			m.ChatEntryType = &v
		case 3:
			m.Message = append([]byte(nil), val...)
		}
	}
	return nil
}

// CMsgClientFriendMsgIncoming is an incoming chat message from a friend
// (or our own message echoed back, see EMsgClientFriendMsgEchoToSender).
type CMsgClientFriendMsgIncoming struct {
	SteamidFrom             *uint64
	ChatEntryType           *int32
	Message                 []byte
	FromLimitedAccount_     *bool
	Rtime32ServerTimestamp_ *uint32
}

func (m *CMsgClientFriendMsgIncoming) GetSteamidFrom() uint64 {
	if m == nil || m.SteamidFrom == nil {
		return 0
	}
	return *m.SteamidFrom
}

func (m *CMsgClientFriendMsgIncoming) GetChatEntryType() int32 {
	if m == nil || m.ChatEntryType == nil {
		return 0
	}
	return *m.ChatEntryType
}

func (m *CMsgClientFriendMsgIncoming) GetMessage() []byte { return m.Message }

func (m *CMsgClientFriendMsgIncoming) GetFromLimitedAccount() bool {
	if m == nil || m.FromLimitedAccount_ == nil {
		return false
	}
	return *m.FromLimitedAccount_
}

func (m *CMsgClientFriendMsgIncoming) GetRtime32ServerTimestamp() uint32 {
	if m == nil || m.Rtime32ServerTimestamp_ == nil {
		return 0
	}
	return *m.Rtime32ServerTimestamp_
}

func (m *CMsgClientFriendMsgIncoming) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint64(b, 1, m.SteamidFrom)
	b = appendOptInt32(b, 2, m.ChatEntryType)
	b = appendOptBytes(b, 3, m.Message)
	b = appendOptBool(b, 4, m.FromLimitedAccount_)
	b = appendOptUint32(b, 5, m.Rtime32ServerTimestamp_)
	return b, nil
}

func (m *CMsgClientFriendMsgIncoming) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := varintVal(val)
			m.SteamidFrom = &v
		case 2:
			v := int32(varintVal(val))
			m.ChatEntryType = &v
		case 3:
			m.Message = append([]byte(nil), val...)
		case 4:
			v := varintVal(val) != 0
			m.FromLimitedAccount_ = &v
		case 5:
			v := uint32(varintVal(val))
			m.Rtime32ServerTimestamp_ = &v
		}
	}
	return nil
}

// CMsgClientRequestFriendData requests persona data for a set of friends.
type CMsgClientRequestFriendData struct {
	PersonaStateRequested *uint32
	Friends               []uint64
}

func (m *CMsgClientRequestFriendData) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint32(b, 1, m.PersonaStateRequested)
	for _, f := range m.Friends {
		b = appendOptUint64(b, 2, &f)
	}
	return b, nil
}

func (m *CMsgClientRequestFriendData) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := uint32(varintVal(val))
			m.PersonaStateRequested = &v
		case 2:
			m.Friends = append(m.Friends, varintVal(val))
		}
	}
	return nil
}
