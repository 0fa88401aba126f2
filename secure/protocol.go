package secure

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"ffnet/network"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"gonum.org/v1/gonum/mat"
)

func init() {
	gob.Register(Payload{})
}

// MessageType identifies a message of the split inference exchange.
type MessageType int

const (
	MsgInput MessageType = iota
	MsgPreActivations
	MsgDone
	MsgError
)

type Message struct {
	Type    MessageType
	Payload interface{}
}

// Payload carries serialized ciphertexts for one request.
type Payload struct {
	RequestID   int
	Ciphertexts [][]byte
}

// Protocol exchanges messages between the data owner and the model owner.
type Protocol struct {
	encoder *gob.Encoder
	decoder *gob.Decoder
}

func NewProtocol(r io.Reader, w io.Writer) *Protocol {
	p := &Protocol{}
	if w != nil {
		p.encoder = gob.NewEncoder(w)
	}
	if r != nil {
		p.decoder = gob.NewDecoder(r)
	}
	return p
}

func (p *Protocol) Send(msg *Message) error {
	return p.encoder.Encode(msg)
}

func (p *Protocol) Receive() (*Message, error) {
	var msg Message
	if err := p.decoder.Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendInput sends the encrypted input of a request to the model owner.
func (p *Protocol) SendInput(id int, ct *rlwe.Ciphertext) error {
	return p.sendCiphertexts(MsgInput, id, []*rlwe.Ciphertext{ct})
}

// SendPreActivations returns the encrypted inner products of a request.
func (p *Protocol) SendPreActivations(id int, cts []*rlwe.Ciphertext) error {
	return p.sendCiphertexts(MsgPreActivations, id, cts)
}

func (p *Protocol) sendCiphertexts(t MessageType, id int, cts []*rlwe.Ciphertext) error {
	payload := Payload{RequestID: id, Ciphertexts: make([][]byte, len(cts))}
	for i, ct := range cts {
		b, err := ct.MarshalBinary()
		if err != nil {
			return fmt.Errorf("serializing ciphertext %d: %w", i, err)
		}
		payload.Ciphertexts[i] = b
	}
	return p.Send(&Message{Type: t, Payload: payload})
}

func (p *Protocol) SendDone() error {
	return p.Send(&Message{Type: MsgDone})
}

func (p *Protocol) SendError(err error) error {
	return p.Send(&Message{Type: MsgError, Payload: err.Error()})
}

// ReceiveInput waits for the next encrypted input. It returns io.EOF once
// the peer sent MsgDone.
func (p *Protocol) ReceiveInput() (int, *rlwe.Ciphertext, error) {
	id, cts, err := p.receiveCiphertexts(MsgInput)
	if err != nil {
		return 0, nil, err
	}
	if len(cts) != 1 {
		return 0, nil, fmt.Errorf("expected one input ciphertext, got %d", len(cts))
	}
	return id, cts[0], nil
}

func (p *Protocol) ReceivePreActivations() (int, []*rlwe.Ciphertext, error) {
	return p.receiveCiphertexts(MsgPreActivations)
}

func (p *Protocol) receiveCiphertexts(want MessageType) (int, []*rlwe.Ciphertext, error) {
	msg, err := p.Receive()
	if err != nil {
		return 0, nil, err
	}
	switch msg.Type {
	case MsgError:
		return 0, nil, fmt.Errorf("remote error: %v", msg.Payload)
	case MsgDone:
		return 0, nil, io.EOF
	case want:
	default:
		return 0, nil, fmt.Errorf("expected message %d, got %d", want, msg.Type)
	}
	payload, ok := msg.Payload.(Payload)
	if !ok {
		return 0, nil, errors.New("invalid ciphertext payload")
	}
	cts := make([]*rlwe.Ciphertext, len(payload.Ciphertexts))
	for i, b := range payload.Ciphertexts {
		ct := new(rlwe.Ciphertext)
		if err := ct.UnmarshalBinary(b); err != nil {
			return 0, nil, fmt.Errorf("ciphertext %d: %w", i, err)
		}
		cts[i] = ct
	}
	return payload.RequestID, cts, nil
}

// Serve is the model owner side: it answers every encrypted input with the
// encrypted products of w until the data owner sends MsgDone.
func Serve(ctx context.Context, c *Context, p *Protocol, w mat.Matrix) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, ct, err := p.ReceiveInput()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		cts, err := c.Linear(ct, w)
		if err != nil {
			if serr := p.SendError(err); serr != nil {
				return serr
			}
			continue
		}
		if err := p.SendPreActivations(id, cts); err != nil {
			return err
		}
	}
}

// ForwardRemote is Forward with transition 0 evaluated by a model owner
// reached through p.
func ForwardRemote(ctx context.Context, c *Context, p *Protocol, id int, net *network.Network, input []float64) (float64, error) {
	if want := net.Topology().Inputs(); len(input) != want {
		return 0, &network.DimensionError{What: "input", Want: want, Got: len(input)}
	}
	ct, err := c.EncryptInput(input)
	if err != nil {
		return 0, err
	}
	if err := p.SendInput(id, ct); err != nil {
		return 0, err
	}
	got, cts, err := p.ReceivePreActivations()
	if err != nil {
		return 0, err
	}
	if got != id {
		return 0, fmt.Errorf("reply for request %d, want %d", got, id)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return finish(c, net, cts)
}
