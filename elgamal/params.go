package elgamal

import (
	"math/big"
	"sync"
)

// The default group: a fixed 2048-bit safe prime p = 2q+1 and a generator g
// of the order-q subgroup. Two peers using DefaultParams need no out-of-band
// parameter negotiation.
const (
	defaultQHex = "7f10d590db04c98b5b88dc544cf27fc758780dcd652763eafdffd0962153671e" +
		"773bc4bed8214591be5fe640896f211a1a54457bdced391bfde8942f2a36904b" +
		"8853bf65ecf849e75936bb9f37a972ff882bac35f632a24c31d2aba339e50b9a" +
		"eb89bdd8db873fa3365907ca09042d3945f15c9f29c8df54cecbb2b98c0989ef" +
		"315a32c2945c86fdec4f06374d337fbf4f81711c78233bcde92802a3064203c5" +
		"3094feeb8fc31cef66af51ef1d50ff2ad6c89afd7d7781e549eedeebd3afa8cb" +
		"a28eeee98cbb156ddbb9e30eb5227f5e7ac86c8a26301bca3ec15d9ba1e71f63" +
		"8227f00bcc7aa4323dafbb1b64ded53c20a9127be8cc5dfa80c10483dbde0ead"

	defaultGHex = "74b6b788b52a14aaac9523692c19efc78b563a67d7bbeeb8faf38a56f5c8512a" +
		"fec40da8fbd65272de0a702288c43b706334c1542bed41c10fa709176cca565c" +
		"ec0f3b12ede38ff85150a548bbf571a574b829f2b065e12c7e4b6faaae595bf8" +
		"26c0db6371d075a61beaa96a014c8a8a277f57acaf1179f5af6c9de3832b6eee" +
		"c9132e6b8bbd131d58d8c65c27fbe9878e8beb9cc2b8efb63eed99914979ad84" +
		"dd3b2168a11e2c0f7db5a0495fbbb93eb84ac97ec714b80d77e2b9d43863de47" +
		"098a843a1d7dae39884bb1091aeea5b9a900ebc445325ff532f472dccc5ae5d2" +
		"0a87cb8401b8cd10295b166905edb6170371b87135f30611c35ed104f8e858d1"
)

var defaultParams = sync.OnceValue(func() *Params { //nolint:gochecknoglobals // lazy constant
	q, ok := new(big.Int).SetString(defaultQHex, 16)
	if !ok {
		panic("elgamal: bad default group prime")
	}
	g, ok := new(big.Int).SetString(defaultGHex, 16)
	if !ok {
		panic("elgamal: bad default group generator")
	}
	p := new(big.Int).Lsh(q, 1)
	p.Add(p, big.NewInt(1))
	return &Params{P: p, G: g}
})

// DefaultParams returns the default 2048-bit group. The returned Params are
// shared; treat them as read-only.
func DefaultParams() *Params {
	return defaultParams()
}
