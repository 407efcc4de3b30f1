package protocol

// CMsgClientUserNotifications_Notification is one entry in a
// notification-count push (trade offers, gifts, etc).
type CMsgClientUserNotifications_Notification struct {
	UserNotificationType *uint32
	Count                *uint32
}

func (m *CMsgClientUserNotifications_Notification) GetUserNotificationType() uint32 {
	if m == nil || m.UserNotificationType == nil {
		return 0
	}
	return *m.UserNotificationType
}

func (m *CMsgClientUserNotifications_Notification) GetCount() uint32 {
	if m == nil || m.Count == nil {
		return 0
	}
	return *m.Count
}

func (m *CMsgClientUserNotifications_Notification) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint32(b, 1, m.UserNotificationType)
	b = appendOptUint32(b, 2, m.Count)
	return b, nil
}

func (m *CMsgClientUserNotifications_Notification) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		switch num {
		case 1:
			v := uint32(varintVal(val))
			m.UserNotificationType = &v
		case 2:
			v := uint32(varintVal(val))
			m.Count = &v
		}
	}
	return nil
}

// CMsgClientUserNotifications is pushed whenever a pending-count changes
// (new trade offers, gifts, etc).
type CMsgClientUserNotifications struct {
	Notifications []*CMsgClientUserNotifications_Notification
}

func (m *CMsgClientUserNotifications) GetNotifications() []*CMsgClientUserNotifications_Notification {
	if m == nil {
		return nil
	}
	return m.Notifications
}

func (m *CMsgClientUserNotifications) Marshal() ([]byte, error) {
	var b []byte
	for _, n := range m.Notifications {
		b = appendMessage(b, 1, n)
	}
	return b, nil
}

func (m *CMsgClientUserNotifications) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		if num == 1 {
			n := &CMsgClientUserNotifications_Notification{}
			if err := n.Unmarshal(val); err != nil {
				return err
			}
			m.Notifications = append(m.Notifications, n)
		}
	}
	return nil
}

// CMsgClientItemAnnouncements is pushed when new inventory items arrive.
type CMsgClientItemAnnouncements struct {
	CountNewItems *uint32
}

func (m *CMsgClientItemAnnouncements) GetCountNewItems() uint32 {
	if m == nil || m.CountNewItems == nil {
		return 0
	}
	return *m.CountNewItems
}

func (m *CMsgClientItemAnnouncements) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint32(b, 1, m.CountNewItems)
	return b, nil
}

func (m *CMsgClientItemAnnouncements) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		if num == 1 {
			v := uint32(varintVal(val))
			m.CountNewItems = &v
		}
	}
	return nil
}
