package mpparticle

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/andewx/mlsmpm/mpmerr"
	"github.com/andewx/mlsmpm/vector"
)

// Persisted state layout (spec §6): a dump of particles in the
// collection's array order (Dump does not re-sort them by block, and the
// live-block set is not written) carrying pos, velocity, apic_b, apic_c,
// dg_e, dg_p, Jp, logJp, gf, tau, p, vol, mass, states, material_tag,
// bit-exact so a dump can be
// replayed byte-for-byte. encoding/binary is a justified stdlib
// exception (DESIGN.md): no serialization library in the corpus covers
// a binary dump format, only text config formats.
const recordSize = 3*4 + 3*4 + 9*4 + 9*4 + 9*4 + 9*4 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 1

// Dump writes every particle in c in its current (unsorted) array order
// to w, little-endian, field-for-field per the persisted layout.
func (c *Collection) Dump(w io.Writer) error {
	buf := make([]byte, recordSize)
	for _, p := range c.particles {
		encodeParticle(buf, p)
		if _, err := w.Write(buf); err != nil {
			return mpmerr.Wrap(mpmerr.InternalInvariant, "particle dump write failed", err)
		}
	}
	return nil
}

// Load replaces c's particle array by reading n particle records from r.
func (c *Collection) Load(r io.Reader, n int) error {
	buf := make([]byte, recordSize)
	particles := make([]*Particle, 0, n)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return mpmerr.Wrap(mpmerr.InternalInvariant, "particle dump read failed", err)
		}
		particles = append(particles, decodeParticle(buf))
	}
	c.particles = particles
	c.sorted = nil
	c.meta = nil
	return nil
}

func putF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func getF32(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func putVec3(buf []byte, off int, v vector.Vec3) {
	putF32(buf, off, v[0])
	putF32(buf, off+4, v[1])
	putF32(buf, off+8, v[2])
}

func getVec3(buf []byte, off int) vector.Vec3 {
	return vector.Vec3{getF32(buf, off), getF32(buf, off+4), getF32(buf, off+8)}
}

func putMat3(buf []byte, off int, m vector.Mat3) {
	for i := 0; i < 9; i++ {
		putF32(buf, off+4*i, m[i])
	}
}

func getMat3(buf []byte, off int) vector.Mat3 {
	var m vector.Mat3
	for i := 0; i < 9; i++ {
		m[i] = getF32(buf, off+4*i)
	}
	return m
}

func encodeParticle(buf []byte, p *Particle) {
	off := 0
	putVec3(buf, off, p.Pos)
	off += 12
	putVec3(buf, off, p.Velocity)
	off += 12
	putMat3(buf, off, p.ApicB)
	off += 36
	putMat3(buf, off, p.ApicC)
	off += 36
	putMat3(buf, off, p.DgE)
	off += 36
	putMat3(buf, off, p.DgP)
	off += 36
	putF32(buf, off, p.Jp)
	off += 4
	putF32(buf, off, p.LogJp)
	off += 4
	putF32(buf, off, p.GF)
	off += 4
	putF32(buf, off, p.Tau)
	off += 4
	putF32(buf, off, p.P)
	off += 4
	putF32(buf, off, p.Vol)
	off += 4
	putF32(buf, off, p.Mass)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], p.States)
	off += 4
	buf[off] = byte(p.Material)
}

func decodeParticle(buf []byte) *Particle {
	p := &Particle{}
	off := 0
	p.Pos = getVec3(buf, off)
	off += 12
	p.Velocity = getVec3(buf, off)
	off += 12
	p.ApicB = getMat3(buf, off)
	off += 36
	p.ApicC = getMat3(buf, off)
	off += 36
	p.DgE = getMat3(buf, off)
	off += 36
	p.DgP = getMat3(buf, off)
	off += 36
	p.Jp = getF32(buf, off)
	off += 4
	p.LogJp = getF32(buf, off)
	off += 4
	p.GF = getF32(buf, off)
	off += 4
	p.Tau = getF32(buf, off)
	off += 4
	p.P = getF32(buf, off)
	off += 4
	p.Vol = getF32(buf, off)
	off += 4
	p.Mass = getF32(buf, off)
	off += 4
	p.States = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	p.Material = MaterialTag(buf[off])
	p.DgT = vector.Identity3()
	return p
}
