// Package secure evaluates the first layer transition of a network on a
// CKKS-encrypted input. The data owner encrypts, the model owner computes the
// linear part under encryption, and the data owner decrypts and finishes the
// forward pass in the clear.
package secure

import (
	"context"
	"errors"
	"fmt"

	"ffnet/network"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/he/hefloat"
	"gonum.org/v1/gonum/mat"
)

var ErrInputTooWide = errors.New("input does not fit in the ciphertext slots")

// Params selects the CKKS parameters. MaxWidth bounds the input width the
// rotation keys are generated for.
type Params struct {
	LogN            int
	LogQ            []int
	LogP            []int
	LogDefaultScale int
	MaxWidth        int
}

// DefaultParams leaves one rescale for the plaintext-ciphertext product.
func DefaultParams() Params {
	return Params{
		LogN:            13,
		LogQ:            []int{55, 40},
		LogP:            []int{61},
		LogDefaultScale: 40,
		MaxWidth:        1024,
	}
}

type Context struct {
	params    hefloat.Parameters
	encoder   *hefloat.Encoder
	encryptor *rlwe.Encryptor
	decryptor *rlwe.Decryptor
	eval      *hefloat.Evaluator
	maxWidth  int
}

func NewContext(p Params) (*Context, error) {
	params, err := hefloat.NewParametersFromLiteral(hefloat.ParametersLiteral{
		LogN:            p.LogN,
		LogQ:            p.LogQ,
		LogP:            p.LogP,
		LogDefaultScale: p.LogDefaultScale,
	})
	if err != nil {
		return nil, fmt.Errorf("ckks parameters: %w", err)
	}
	if p.MaxWidth <= 0 || p.MaxWidth > params.MaxSlots() {
		return nil, fmt.Errorf("%w: max width %d, %d slots", ErrInputTooWide, p.MaxWidth, params.MaxSlots())
	}

	kgen := hefloat.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPairNew()
	rlk := kgen.GenRelinearizationKeyNew(sk)

	var galEls []uint64
	for k := 1; k < p.MaxWidth; k *= 2 {
		galEls = append(galEls, params.GaloisElement(k))
	}
	evk := rlwe.NewMemEvaluationKeySet(rlk, kgen.GenGaloisKeysNew(galEls, sk)...)

	return &Context{
		params:    params,
		encoder:   hefloat.NewEncoder(params),
		encryptor: hefloat.NewEncryptor(params, pk),
		decryptor: hefloat.NewDecryptor(params, sk),
		eval:      hefloat.NewEvaluator(params, evk),
		maxWidth:  p.MaxWidth,
	}, nil
}

// EncryptInput packs values into the first slots of one ciphertext.
func (c *Context) EncryptInput(values []float64) (*rlwe.Ciphertext, error) {
	if len(values) == 0 {
		return nil, network.ErrEmptyInput
	}
	if len(values) > c.maxWidth {
		return nil, fmt.Errorf("%w: %d values, max %d", ErrInputTooWide, len(values), c.maxWidth)
	}
	pt := hefloat.NewPlaintext(c.params, c.params.MaxLevel())
	if err := c.encoder.Encode(values, pt); err != nil {
		return nil, fmt.Errorf("encoding input: %w", err)
	}
	return c.encryptor.EncryptNew(pt)
}

// Linear computes the inner product of every row of w with the encrypted
// input. The i-th returned ciphertext holds row i's sum in slot 0; the bias is
// left to Decrypt so the model owner never adds plaintext it cannot scale.
func (c *Context) Linear(ct *rlwe.Ciphertext, w mat.Matrix) ([]*rlwe.Ciphertext, error) {
	rows, cols := w.Dims()
	if cols > c.maxWidth {
		return nil, fmt.Errorf("%w: %d columns, max %d", ErrInputTooWide, cols, c.maxWidth)
	}
	if ct.Level() == 0 {
		return nil, errors.New("ciphertext has no level left for a rescale")
	}

	row := make([]float64, cols)
	out := make([]*rlwe.Ciphertext, rows)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, w)
		pt := hefloat.NewPlaintext(c.params, ct.Level())
		if err := c.encoder.Encode(row, pt); err != nil {
			return nil, fmt.Errorf("encoding row %d: %w", i, err)
		}
		prod, err := c.eval.MulNew(ct, pt)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if err := c.eval.Rescale(prod, prod); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		for k := 1; k < cols; k *= 2 {
			rot, err := c.eval.RotateNew(prod, k)
			if err != nil {
				return nil, fmt.Errorf("row %d, rotation %d: %w", i, k, err)
			}
			if err := c.eval.Add(prod, rot, prod); err != nil {
				return nil, err
			}
		}
		out[i] = prod
	}
	return out, nil
}

// Decrypt reads slot 0 of every ciphertext and adds bias, giving the
// pre-activations of the next layer.
func (c *Context) Decrypt(cts []*rlwe.Ciphertext, bias []float64) ([]float64, error) {
	if len(bias) != len(cts) {
		return nil, &network.DimensionError{What: "bias", Want: len(cts), Got: len(bias)}
	}
	z := make([]float64, len(cts))
	slot := make([]complex128, 1)
	for i, ct := range cts {
		pt := c.decryptor.DecryptNew(ct)
		if err := c.encoder.Decode(pt, slot); err != nil {
			return nil, fmt.Errorf("decoding neuron %d: %w", i, err)
		}
		z[i] = real(slot[0]) + bias[i]
	}
	return z, nil
}

// Forward runs transition 0 of net on the encrypted input and the remaining
// transitions in the clear. The result is read like network.ForwardFeed.
func Forward(ctx context.Context, c *Context, net *network.Network, input []float64) (float64, error) {
	if want := net.Topology().Inputs(); len(input) != want {
		return 0, &network.DimensionError{What: "input", Want: want, Got: len(input)}
	}
	ct, err := c.EncryptInput(input)
	if err != nil {
		return 0, err
	}
	w, err := net.Weights(0)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cts, err := c.Linear(ct, w)
	if err != nil {
		return 0, fmt.Errorf("encrypted layer: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return finish(c, net, cts)
}

// finish decrypts the pre-activations of layer 1 and runs the rest of net in
// the clear.
func finish(c *Context, net *network.Network, cts []*rlwe.Ciphertext) (float64, error) {
	b, err := net.Bias(0)
	if err != nil {
		return 0, err
	}
	z, err := c.Decrypt(cts, b.RawVector().Data)
	if err != nil {
		return 0, err
	}

	f := net.Activation()
	for i, v := range z {
		z[i] = f.Activate(v)
	}
	return net.ForwardFeedFrom(1, z)
}
