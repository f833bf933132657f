package scene

import (
	"fmt"
	"math/rand/v2"

	"github.com/achilleasa/procrt/types"
)

// Preset is a named scene definition.
type Preset struct {
	Name  string
	build func(b *builder)
}

const (
	// The preset shown when the renderer starts.
	InitialPreset = 4
)

var (
	dayBackground = types.XYZ(0.4, 0.6, 0.8)
	black         = types.XYZ(0, 0, 0)
)

// The scene presets in cycling order.
var Presets = []Preset{
	{"basic", func(b *builder) { basic(b, 0) }},
	{"basic (defocus)", func(b *builder) { basic(b, 10) }},
	{"basic close", func(b *builder) { basicClose(b, 0) }},
	{"basic close (defocus)", func(b *builder) { basicClose(b, 10) }},
	{"final (day)", func(b *builder) { final(b, 0, false) }},
	{"final (night)", func(b *builder) { final(b, 0, true) }},
	{"final (day, defocus)", func(b *builder) { final(b, 0.6, false) }},
	{"quads", func(b *builder) { quads(b, 0) }},
	{"cornell box", func(b *builder) { cornellBox(b, 0) }},
	{"cornell box (smoke)", func(b *builder) { cornellBoxSmoke(b, 0) }},
	{"cornell box (glass)", func(b *builder) { cornellBoxGlass(b, 0) }},
	{"cornell box (metal)", func(b *builder) { cornellBoxMetal(b, 0) }},
	{"cornell box (glass sphere)", func(b *builder) { cornellBoxGlassSphere(b, 0, false) }},
	{"cornell box (glass sphere light)", func(b *builder) { cornellBoxGlassSphere(b, 0, true) }},
	{"cornell box (metal box, glass sphere)", func(b *builder) { cornellBoxMetalBoxGlassSphere(b) }},
	{"final 2", func(b *builder) { final2(b, 0) }},
}

// Get the preset index that follows index.
func NextPreset(index int) int {
	return (index + 1) % len(Presets)
}

// Reset the catalog and populate it with the preset at index. Presets are
// deterministic: loading the same index twice yields identical catalogs.
func (c *Catalog) LoadPreset(index int) error {
	if index < 0 || index >= len(Presets) {
		return fmt.Errorf("%w: %d", ErrUnknownPreset, index)
	}

	c.Reset()
	b := &builder{
		cat: c,
		rng: rand.New(rand.NewPCG(uint64(index), 0x9e3779b97f4a7c15)),
	}
	Presets[index].build(b)
	if b.err != nil {
		c.Reset()
		return fmt.Errorf("scene: could not build preset %q: %w", Presets[index].Name, b.err)
	}
	return nil
}

// builder keeps the first catalog error so preset definitions can be
// written as straight sequences of additions.
type builder struct {
	cat *Catalog
	rng *rand.Rand
	err error
}

func (b *builder) camera(cam Camera) {
	b.cat.SetCamera(cam)
}

func (b *builder) sphere(center types.Vec3, radius float32, mat Material, isLight bool) {
	if b.err == nil {
		b.err = b.cat.AddSphere(center, radius, mat, isLight)
	}
}

func (b *builder) quad(q, u, v types.Vec3, mat Material, isLight bool) {
	if b.err == nil {
		b.err = b.cat.AddQuad(q, u, v, mat, isLight)
	}
}

func (b *builder) box(p0, p1 types.Vec3, mat Material, rotY float32, isLight bool) {
	if b.err == nil {
		b.err = b.cat.AddBox(p0, p1, mat, types.XYZ(0, rotY, 0), isLight)
	}
}

// Random value in [0, 1).
func (b *builder) random() float32 {
	return b.rng.Float32()
}

// Random value in [min, max).
func (b *builder) randomRange(min, max float32) float32 {
	return min + (max-min)*b.random()
}

func (b *builder) randomVec() types.Vec3 {
	return types.XYZ(b.random(), b.random(), b.random())
}

func (b *builder) randomVecRange(min, max float32) types.Vec3 {
	return types.XYZ(b.randomRange(min, max), b.randomRange(min, max), b.randomRange(min, max))
}

func basicObjects(b *builder) {
	b.sphere(types.XYZ(0, 50, 1), 5, NewDiffuseLight(types.XYZ(15, 15, 10)), true)

	b.sphere(types.XYZ(0, 0, 1), 0.49, NewLambertian(types.XYZ(0.1, 0.2, 0.5)), false)
	b.sphere(types.XYZ(0, -100.5, 1), 100, NewLambertian(types.XYZ(0.8, 0.8, 0)), false)
	b.sphere(types.XYZ(-1, 0, 1), 0.5, NewDielectric(1.5), false)
	b.sphere(types.XYZ(-1, 0, 1), 0.4, NewDielectric(1.0/1.5), false)
	b.sphere(types.XYZ(1, 0, 1), 0.5, NewMetal(types.XYZ(0.8, 0.6, 0.2), 0.1), false)
}

func basic(b *builder, defocusAngle float32) {
	b.camera(defaultCamera(types.XYZ(0, 0, -0.5), types.XYZ(0, 0, 1), dayBackground, 90, 3.4, defocusAngle))
	basicObjects(b)
}

func basicClose(b *builder, defocusAngle float32) {
	b.camera(defaultCamera(types.XYZ(-2, 2, -1), types.XYZ(0, 0, 1), dayBackground, 20, 3.4, defocusAngle))
	basicObjects(b)
}

func final(b *builder, defocusAngle float32, isNight bool) {
	background := dayBackground
	if isNight {
		background = black
	}
	b.camera(defaultCamera(types.XYZ(13, 2, -3), types.XYZ(0, 0, 0), background, 20, 10, defocusAngle))

	b.sphere(types.XYZ(0, 50, 1), 10, NewDiffuseLight(types.XYZ(15, 15, 10)), true)
	b.sphere(types.XYZ(0, -1000, 0), 1000, NewLambertian(types.XYZ(0.5, 0.5, 0.5)), false)
	b.sphere(types.XYZ(0, 1, 0), 1, NewDielectric(1.5), false)
	b.sphere(types.XYZ(-4, 1, 0), 1, NewLambertian(types.XYZ(0.4, 0.2, 0.1)), false)
	b.sphere(types.XYZ(4, 1, 0), 1, NewMetal(types.XYZ(0.7, 0.6, 0.5), 0), false)

	exclusion := types.XYZ(4, 0.2, 0)
	for i := -11; i < 11; i++ {
		for j := -11; j < 11; j++ {
			chooseMat := b.random()
			center := types.XYZ(float32(i)+0.9*b.random(), 0.2, float32(j)+0.9*b.random())
			if center.Sub(exclusion).Len() <= 0.9 {
				continue
			}

			var mat Material
			switch {
			case chooseMat < 0.8:
				mat = NewLambertian(b.randomVec().MulVec(b.randomVec()))
			case chooseMat < 0.95:
				albedo := b.randomVecRange(0.5, 1)
				mat = NewMetal(albedo, b.randomRange(0, 0.5))
			default:
				mat = NewDielectric(1.5)
			}
			b.sphere(center, 0.2, mat, false)
		}
	}
}

func quads(b *builder, defocusAngle float32) {
	b.camera(defaultCamera(types.XYZ(0, 0, -9), types.XYZ(0, 0, 0), black, 80, 10, defocusAngle))

	b.quad(types.XYZ(-3, -2, -5), types.XYZ(0, 0, 4), types.XYZ(0, 4, 0), NewLambertian(types.XYZ(1, 0.2, 0.2)), false)
	b.quad(types.XYZ(-2, -2, 0), types.XYZ(4, 0, 0), types.XYZ(0, 4, 0), NewLambertian(types.XYZ(0.2, 1, 0.2)), false)
	b.quad(types.XYZ(3, -2, -1), types.XYZ(0, 0, -4), types.XYZ(0, 4, 0), NewLambertian(types.XYZ(0.2, 0.2, 1)), false)
	b.quad(types.XYZ(-2, 3, -1), types.XYZ(4, 0, 0), types.XYZ(0, 0, -4), NewDiffuseLight(types.XYZ(5, 2.5, 0.1)), true)
	b.quad(types.XYZ(-2, -3, -5), types.XYZ(4, 0, 0), types.XYZ(0, 0, 4), NewLambertian(types.XYZ(0.2, 0.8, 0.8)), false)
}

var (
	cornellRed      = NewLambertian(types.XYZ(0.65, 0.05, 0.05))
	cornellWhite    = NewLambertian(types.XYZ(0.73, 0.73, 0.73))
	cornellGreen    = NewLambertian(types.XYZ(0.12, 0.45, 0.15))
	cornellAluminum = NewMetal(types.XYZ(0.8, 0.85, 0.88), 0)
	cornellGlass    = NewDielectric(1.5)
)

// The small cornell box is a tenth of the classic 555 unit room.
func cornellRoom(b *builder, defocusAngle float32) {
	b.camera(defaultCamera(types.XYZ(27.8, 27.8, 80), types.XYZ(27.8, 27.8, 0), black, 40, 10, defocusAngle))

	b.quad(types.XYZ(55.5, 0, 0), types.XYZ(0, 55.5, 0), types.XYZ(0, 0, -55.5), cornellGreen, false)
	b.quad(types.XYZ(0, 0, 0), types.XYZ(0, 55.5, 0), types.XYZ(0, 0, -55.5), cornellRed, false)
	b.quad(types.XYZ(34.3, 55.4, -33.2), types.XYZ(-13, 0, 0), types.XYZ(0, 0, 10.5), NewDiffuseLight(types.XYZ(15, 15, 15)), true)
	b.quad(types.XYZ(0, 0, 0), types.XYZ(55.5, 0, 0), types.XYZ(0, 0, -55.5), cornellWhite, false)
	b.quad(types.XYZ(55.5, 55.5, -55.5), types.XYZ(-55.5, 0, 0), types.XYZ(0, 0, 55.5), cornellWhite, false)
	b.quad(types.XYZ(0, 0, -55.5), types.XYZ(55.5, 0, 0), types.XYZ(0, 55.5, 0), cornellWhite, false)
}

var (
	cornellShortBox = [2]types.Vec3{types.XYZ(13, 0, -6.5), types.XYZ(29.5, 16.5, -23)}
	cornellTallBox  = [2]types.Vec3{types.XYZ(26.5, 0, -29.5), types.XYZ(43, 33, -46)}
)

func cornellBox(b *builder, defocusAngle float32) {
	cornellRoom(b, defocusAngle)
	b.box(cornellShortBox[0], cornellShortBox[1], cornellWhite, 15, false)
	b.box(cornellTallBox[0], cornellTallBox[1], cornellWhite, -18, false)
}

func cornellBoxGlass(b *builder, defocusAngle float32) {
	cornellRoom(b, defocusAngle)
	b.box(cornellShortBox[0], cornellShortBox[1], cornellGlass, 15, false)
	b.box(cornellTallBox[0], cornellTallBox[1], cornellGlass, -18, false)
}

func cornellBoxMetal(b *builder, defocusAngle float32) {
	cornellRoom(b, defocusAngle)
	b.box(cornellShortBox[0], cornellShortBox[1], cornellWhite, 15, false)
	b.box(cornellTallBox[0], cornellTallBox[1], cornellAluminum, -18, true)
}

func cornellBoxGlassSphere(b *builder, defocusAngle float32, isSphereLight bool) {
	cornellRoom(b, defocusAngle)
	b.sphere(types.XYZ(19, 9, -19), 9, cornellGlass, isSphereLight)
	b.box(cornellTallBox[0], cornellTallBox[1], cornellWhite, -18, false)
}

func cornellBoxMetalBoxGlassSphere(b *builder) {
	cornellRoom(b, 0)
	b.sphere(types.XYZ(19, 9, -19), 9, cornellGlass, true)
	b.box(cornellTallBox[0], cornellTallBox[1], cornellAluminum, -18, true)
}

// Full scale room filled with two smoke boxes.
func cornellBoxSmoke(b *builder, defocusAngle float32) {
	b.camera(defaultCamera(types.XYZ(278, 278, 800), types.XYZ(278, 278, 0), black, 40, 10, defocusAngle))

	b.quad(types.XYZ(555, 0, 0), types.XYZ(0, 555, 0), types.XYZ(0, 0, -555), cornellGreen, false)
	b.quad(types.XYZ(0, 0, 0), types.XYZ(0, 555, 0), types.XYZ(0, 0, -555), cornellRed, false)
	b.quad(types.XYZ(113, 554, -127), types.XYZ(330, 0, 0), types.XYZ(0, 0, -305), NewDiffuseLight(types.XYZ(7, 7, 7)), true)
	b.quad(types.XYZ(0, 0, 0), types.XYZ(555, 0, 0), types.XYZ(0, 0, -555), cornellWhite, false)
	b.quad(types.XYZ(555, 555, -555), types.XYZ(-555, 0, 0), types.XYZ(0, 0, 555), cornellWhite, false)
	b.quad(types.XYZ(0, 0, -555), types.XYZ(555, 0, 0), types.XYZ(0, 555, 0), cornellWhite, false)

	b.box(types.XYZ(130, 0, -65), types.XYZ(295, 165, -230), NewSmoke(types.XYZ(1, 1, 1), 0.02), 15, false)
	b.box(types.XYZ(265, 0, -295), types.XYZ(430, 330, -460), NewSmoke(types.XYZ(0, 0, 0), 0.02), -18, false)
}

func final2(b *builder, defocusAngle float32) {
	b.camera(defaultCamera(types.XYZ(478, 278, 600), types.XYZ(278, 278, 0), black, 40, 10, defocusAngle))

	ground := NewLambertian(types.XYZ(0.48, 0.83, 0.53))
	const boxesPerSide = 20
	const w = 100
	for i := 0; i < boxesPerSide; i++ {
		for j := 0; j < boxesPerSide; j++ {
			x0 := -1000 + float32(i)*w
			z0 := -1000 + float32(j)*w
			x1 := x0 + w
			y1 := b.randomRange(1, 101)
			z1 := z0 + w
			b.box(types.XYZ(x0, 0, -z0), types.XYZ(x1, y1, -z1), ground, 0, false)
		}
	}

	b.quad(types.XYZ(123, 554, -147), types.XYZ(300, 0, 0), types.XYZ(0, 0, -265), NewDiffuseLight(types.XYZ(7, 7, 7)), true)

	glass := NewDielectric(1.5)
	fuzzyMetal := NewMetal(types.XYZ(0.8, 0.8, 0.9), 1)

	b.sphere(types.XYZ(400, 400, -200), 50, NewLambertian(types.XYZ(0.7, 0.3, 0.1)), false)
	b.sphere(types.XYZ(260, 150, -45), 50, glass, false)
	b.sphere(types.XYZ(0, 150, -145), 50, fuzzyMetal, false)

	// Glass shell filled with blue smoke.
	b.sphere(types.XYZ(360, 150, -145), 70, glass, false)
	b.sphere(types.XYZ(360, 150, -145), 69.9, NewSmoke(types.XYZ(0.2, 0.4, 0.9), 0.2), false)

	// Thin mist around the whole scene.
	b.sphere(types.XYZ(0, 0, 0), 5000, glass, false)
	b.sphere(types.XYZ(0, 0, 0), 4999, NewSmoke(types.XYZ(1, 1, 1), 0.0002), false)

	b.sphere(types.XYZ(400, 200, -400), 100, NewLambertian(types.XYZ(0.05, 0.1, 0.225)), false)
	b.sphere(types.XYZ(220, 280, -300), 80, fuzzyMetal, false)

	white := NewLambertian(types.XYZ(0.73, 0.73, 0.73))
	for i := 0; i < 1000; i++ {
		center := types.XYZ(165*b.random()-100, 165*b.random()+270, 165*b.random()-395)
		b.sphere(center, 10, white, false)
	}
}
