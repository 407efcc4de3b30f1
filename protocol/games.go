package protocol

// CMsgClientGamesPlayed_GamePlayed identifies one app being "played".
type CMsgClientGamesPlayed_GamePlayed struct {
	GameId *uint64
}

func (m *CMsgClientGamesPlayed_GamePlayed) GetGameId() uint64 {
	if m == nil || m.GameId == nil {
		return 0
	}
	return *m.GameId
}

func (m *CMsgClientGamesPlayed_GamePlayed) Marshal() ([]byte, error) {
	var b []byte
	b = appendOptUint64(b, 1, m.GameId)
	return b, nil
}

func (m *CMsgClientGamesPlayed_GamePlayed) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		if num == 1 {
			v := varintVal(val)
			m.GameId = &v
		}
	}
	return nil
}

// CMsgClientGamesPlayed announces which games the client is playing.
type CMsgClientGamesPlayed struct {
	GamesPlayed []*CMsgClientGamesPlayed_GamePlayed
}

func (m *CMsgClientGamesPlayed) GetGamesPlayed() []*CMsgClientGamesPlayed_GamePlayed {
	if m == nil {
		return nil
	}
	return m.GamesPlayed
}

func (m *CMsgClientGamesPlayed) Marshal() ([]byte, error) {
	var b []byte
	for _, g := range m.GamesPlayed {
		b = appendMessage(b, 1, g)
	}
	return b, nil
}

func (m *CMsgClientGamesPlayed) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, _, val, rest, err := consumeField(b)
		if err != nil {
			return err
		}
		b = rest
		if num == 1 {
			g := &CMsgClientGamesPlayed_GamePlayed{}
			if err := g.Unmarshal(val); err != nil {
				return err
			}
			m.GamesPlayed = append(m.GamesPlayed, g)
		}
	}
	return nil
}
