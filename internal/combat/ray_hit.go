package combat

import (
	"math"

	"github.com/FrogCounters/boatboat/internal/geom"
)

// Ray describes a shot evaluated once at fire time: it starts at Origin and
// travels along Angle (radians).
type Ray struct {
	Origin  geom.Vec2
	Angle   float64
	OwnerID string
}

// RayHitTarget carries the metadata required to test a candidate ship against
// a ray while preserving access to the original reference for callers.
type RayHitTarget struct {
	ID       string
	Position geom.Vec2
	Radius   float64
	Raw      any
}

// RayHitVisitor consumes a candidate target. Returning false stops the scan.
type RayHitVisitor func(target RayHitTarget) bool

// RayHitResult reports the struck target and the ray parameter of the
// intersection point.
type RayHitResult struct {
	Target RayHitTarget
	T      float64
}

// IntersectRayCircle returns the smallest non-negative ray parameter t at
// which origin + t*dir meets the circle, or false when the circle is missed or
// lies entirely behind the origin. dir must be unit length.
func IntersectRayCircle(origin, dir, center geom.Vec2, radius float64) (float64, bool) {
	oc := center.Sub(origin)
	tClosest := oc.Dot(dir)
	closest := origin.Add(dir.Scale(tClosest))
	d := geom.Distance(closest, center)
	if d > radius {
		return 0, false
	}

	offset := math.Sqrt(radius*radius - d*d)
	if t := tClosest - offset; t >= 0 {
		return t, true
	}
	if t := tClosest + offset; t >= 0 {
		return t, true
	}
	return 0, false
}

// ResolveRayHit scans the visited targets and returns the nearest one struck
// by the ray. Targets owned by the firing ship are skipped. Equal ray
// parameters resolve to the lowest target id.
func ResolveRayHit(ray Ray, visit func(RayHitVisitor)) (RayHitResult, bool) {
	if visit == nil {
		return RayHitResult{}, false
	}

	dir := geom.Heading(ray.Angle)
	var best RayHitResult
	found := false

	visit(func(target RayHitTarget) bool {
		if target.ID == "" || target.ID == ray.OwnerID {
			return true
		}
		t, ok := IntersectRayCircle(ray.Origin, dir, target.Position, target.Radius)
		if !ok {
			return true
		}
		if !found || t < best.T || (t == best.T && target.ID < best.Target.ID) {
			best = RayHitResult{Target: target, T: t}
			found = true
		}
		return true
	})

	return best, found
}
