package protocol

// CMsgProtoBufHeader is the header carried by every protobuf-framed CM
// message. Field numbers follow the order fields were added, matching the
// grounding in steamclient/message.go's encode/decodeProtoPacket.
type CMsgProtoBufHeader struct {
	Steamid         *uint64
	ClientSessionid *int32
	JobidSource     *uint64
	JobidTarget     *uint64
	TargetJobName   *string
	Eresult         *int32
}

func (m *CMsgProtoBufHeader) GetSteamid() uint64 {
	if m == nil || m.Steamid == nil {
		return 0
	}
	return *m.Steamid
}

func (m *CMsgProtoBufHeader) GetClientSessionid() int32 {
	if m == nil || m.ClientSessionid == nil {
		return 0
	}
	return *m.ClientSessionid
}

func (m *CMsgProtoBufHeader) GetJobidSource() uint64 {
	if m == nil || m.JobidSource == nil {
		return 0
	}
	return *m.JobidSource
}

func (m *CMsgProtoBufHeader) GetJobidTarget() uint64 {
	if m == nil || m.JobidTarget == nil {
		return 0
	}
	return *m.JobidTarget
}

func (m *CMsgProtoBufHeader) GetTargetJobName() string {
	if m == nil || m.TargetJobName == nil {
		return ""
	}
	return *m.TargetJobName
}

func (m *CMsgProtoBufHeader) GetEresult() int32 {
	if m == nil || m.Eresult == nil {
		return 0
	}
	return *m.Eresult
}

func (m *CMsgProtoBufHeader) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint64(b, 1, m.Steamid)
	b = appendOptInt32(b, 2, m.ClientSessionid)
	b = appendOptUint64(b, 3, m.JobidSource)
	b = appendOptUint64(b, 4, m.JobidTarget)
	b = appendOptString(b, 5, m.TargetJobName)
	b = appendOptInt32(b, 6, m.Eresult)
	return b, nil
}

func (m *CMsgProtoBufHeader) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, val, rest, err := consumeField(b)
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
			m.ClientSessionid = &v
		case 3:
			v := varintVal(val)
			m.JobidSource = &v
		case 4:
			v := varintVal(val)
			m.JobidTarget = &v
		case 5:
			v := string(val)
			m.TargetJobName = &v
		case 6:
			v := int32(varintVal(val))
			m.Eresult = &v
		default:
			_ = typ
		}
	}
	return nil
}

// CMsgMulti wraps zero or more length-prefixed sub-messages, optionally
// gzip-compressed when SizeUnzipped is set. Grounded on
// steamclient/message.go's decodeMulti.
type CMsgMulti struct {
	MessageBody   []byte
	SizeUnzipped  *uint32
}

func (m *CMsgMulti) GetMessageBody() []byte {
	if m == nil {
		return nil
	}
	return m.MessageBody
}

func (m *CMsgMulti) GetSizeUnzipped() uint32 {
	if m == nil || m.SizeUnzipped == nil {
		return 0
	}
	return *m.SizeUnzipped
}

func (m *CMsgMulti) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptBytes(b, 1, m.MessageBody)
	b = appendOptUint32(b, 2, m.SizeUnzipped)
	return b, nil
}

func (m *CMsgMulti) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			m.MessageBody = append([]byte(nil), val...)
		case 2:
			v := uint32(varintVal(val))
			m.SizeUnzipped = &v
		}
	}
	return nil
}
