package spi

// ExchangeHook lets a simulator emulate device-specific response data.
type ExchangeHook func(tx []byte) ([]byte, error)

// SimTransport is an in-memory transport useful for unit tests. It records
// every exchange and can provide response data via OnExchange.
type SimTransport struct {
	InfoData TransportInfo
	Config   Config

	OnExchange ExchangeHook

	last      []byte
	exchanges int
	closed    bool
}

// NewSimTransport constructs a simulator configured with the provided info.
func NewSimTransport(info TransportInfo) *SimTransport {
	return &SimTransport{InfoData: info, Config: DefaultConfig()}
}

// LastExchange returns a copy of the most recent transmit buffer.
func (s *SimTransport) LastExchange() []byte {
	return append([]byte(nil), s.last...)
}

// Exchanges reports how many exchanges have been performed.
func (s *SimTransport) Exchanges() int {
	return s.exchanges
}

func (s *SimTransport) Info() (TransportInfo, error) {
	return s.InfoData, nil
}

func (s *SimTransport) Exchange(tx []byte) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if _, err := ValidateExchange(tx); err != nil {
		return nil, err
	}

	s.last = append([]byte(nil), tx...)
	s.exchanges++

	if s.OnExchange != nil {
		rx, err := s.OnExchange(tx)
		if err != nil {
			return nil, err
		}
		if len(rx) < len(tx) {
			return nil, ErrShortResponse
		}
		return rx[:len(tx)], nil
	}

	// Default: loop MOSI back to MISO.
	return append([]byte(nil), tx...), nil
}

func (s *SimTransport) Close() error {
	s.closed = true
	return nil
}
