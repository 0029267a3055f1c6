package feather2d

import (
	"fmt"
	"iter"
	"log/slog"
	"math"
	"slices"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

type edgeKind uint8

const (
	edgeContact edgeKind = iota
	edgeJoint
)

// edge links a body to one of its contacts or joints
type edge struct {
	kind  edgeKind
	index int32
}

type bodyNode struct {
	body    *actor.RigidBody
	edges   []edge
	visited bool
}

type contactNode struct {
	contact      *constraint.Contact
	bodyA, bodyB int32
	visited      bool
	// broad phase pass that last reported the pair
	seen uint64
}

type jointNode struct {
	joint   constraint.Joint
	bodies  []int32
	visited bool
}

// pairKey is the unordered pair of body slots of a contact
type pairKey struct {
	a, b int32
}

func makePairKey(a, b int32) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// BodyDef describes a body to create. Start from DefaultBodyDef: the zero value
// has a GravityScale of 0, so the body ignores gravity, and AllowSleep false.
type BodyDef struct {
	Type            actor.BodyType
	Position        mgl64.Vec2
	Angle           float64
	Velocity        mgl64.Vec2
	AngularVelocity float64
	Shape           actor.Shape
	Material        actor.Material
	GravityScale    float64
	AllowSleep      bool
	Asleep          bool
	UserData        any
}

// DefaultBodyDef returns a dynamic body definition with the usual material
func DefaultBodyDef() BodyDef {
	return BodyDef{
		Type:         actor.BodyTypeDynamic,
		Material:     actor.Material{Density: 1.0, Friction: 0.2},
		GravityScale: 1.0,
		AllowSleep:   true,
	}
}

// World owns the bodies, contacts and joints of a simulation and steps them
type World struct {
	Config Config

	// SpatialGrid finds the candidate pairs. When nil, contacts are only created
	// through CreateContact.
	SpatialGrid *SpatialGrid
	// Collider refreshes the manifolds. When nil, manifolds are left as set by the
	// caller through Contact.Update; a Manifold assigned directly is not touching
	// and is never solved.
	Collider Collider

	Events Events
	Logger *slog.Logger

	bodies   arena[bodyNode]
	contacts arena[contactNode]
	joints   arena[jointNode]

	bodySlots    map[*actor.RigidBody]int32
	contactSlots map[*constraint.Contact]int32
	jointSlots   map[constraint.Joint]int32
	pairs        map[pairKey]int32

	islands     []*Island
	islandCount int
	stack       []int32

	// broad phase scratch
	broadPhaseBodies []*actor.RigidBody
	broadPhaseSlots  []int32
	broadPhasePass   uint64

	invDt0 float64
}

// NewWorld creates an empty world
func NewWorld(config Config) *World {
	return &World{
		Config:       config,
		SpatialGrid:  NewSpatialGrid(config.Grid.CellSize, config.Grid.Cells),
		Collider:     ShapeCollider{},
		Events:       NewEvents(),
		bodySlots:    make(map[*actor.RigidBody]int32),
		contactSlots: make(map[*constraint.Contact]int32),
		jointSlots:   make(map[constraint.Joint]int32),
		pairs:        make(map[pairKey]int32),
	}
}

func (w *World) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// reject logs a refused operation and returns the wrapped error
func (w *World) reject(op string, err error) error {
	w.logger().Warn("operation rejected", "op", op, "error", err)
	return fmt.Errorf("feather2d: %s: %w", op, err)
}

// ============================================================================
// Bodies
// ============================================================================

// CreateBody builds a body from its definition and adds it to the world.
// Mass properties are computed from the shape and the material density.
func (w *World) CreateBody(def BodyDef) (BodyID, error) {
	if def.Material.Density < 0 || math.IsNaN(def.Position.X()) || math.IsNaN(def.Position.Y()) || math.IsNaN(def.Angle) {
		return BodyID{}, w.reject("create body", ErrInvalidBody)
	}

	body := actor.NewRigidBody(actor.NewTransform(def.Position, def.Angle), def.Shape, def.Type, def.Material.Density)
	body.Material = def.Material
	body.GravityScale = def.GravityScale
	body.AllowSleep = def.AllowSleep
	body.UserData = def.UserData
	if def.Type != actor.BodyTypeStatic {
		body.Velocity = def.Velocity
		body.AngularVelocity = def.AngularVelocity
		body.IsSleeping = def.Asleep
	}

	return w.AddBody(body)
}

// AddBody adds an already built rigid body to the world
func (w *World) AddBody(body *actor.RigidBody) (BodyID, error) {
	if body == nil {
		return BodyID{}, w.reject("add body", ErrInvalidBody)
	}
	if _, exists := w.bodySlots[body]; exists {
		return BodyID{}, w.reject("add body", fmt.Errorf("body already added: %w", ErrInvalidBody))
	}
	if body.IsStatic() {
		body.IsSleeping = false
	}

	h := w.bodies.insert(bodyNode{body: body})
	w.bodySlots[body] = h.index
	w.Events.track(body)

	return BodyID(h), nil
}

// Body returns the rigid body referenced by id
func (w *World) Body(id BodyID) (*actor.RigidBody, error) {
	node := w.bodies.get(handle(id))
	if node == nil {
		return nil, fmt.Errorf("feather2d: body: %w", ErrStaleHandle)
	}
	return node.body, nil
}

// BodyID returns the id of a body added to the world
func (w *World) BodyID(body *actor.RigidBody) (BodyID, bool) {
	index, ok := w.bodySlots[body]
	if !ok {
		return BodyID{}, false
	}
	return BodyID(w.bodies.handleOf(index)), true
}

// BodyCount returns the number of live bodies
func (w *World) BodyCount() int {
	return w.bodies.count
}

// Bodies iterates the live bodies in creation slot order
func (w *World) Bodies() iter.Seq2[BodyID, *actor.RigidBody] {
	return func(yield func(BodyID, *actor.RigidBody) bool) {
		for i := 0; i < w.bodies.len(); i++ {
			node := w.bodies.at(int32(i))
			if node == nil {
				continue
			}
			if !yield(BodyID(w.bodies.handleOf(int32(i))), node.body) {
				return
			}
		}
	}
}

// DestroyBody removes a body, together with every joint and contact attached to it
func (w *World) DestroyBody(id BodyID) error {
	node := w.bodies.get(handle(id))
	if node == nil {
		return w.reject("destroy body", ErrStaleHandle)
	}

	var joints []JointID
	var contacts []ContactID
	for _, e := range node.edges {
		switch e.kind {
		case edgeJoint:
			joints = append(joints, JointID(w.joints.handleOf(e.index)))
		case edgeContact:
			contacts = append(contacts, ContactID(w.contacts.handleOf(e.index)))
		}
	}

	// Destroying a joint may cascade to gears, skip what is already gone
	for _, jointID := range joints {
		if w.joints.get(handle(jointID)) != nil {
			w.destroyJoint(jointID)
		}
	}
	for _, contactID := range contacts {
		if w.contacts.get(handle(contactID)) != nil {
			w.destroyContact(contactID)
		}
	}

	body := node.body
	w.Events.forget(body)
	delete(w.bodySlots, body)
	w.bodies.remove(handle(id))

	return nil
}

// RemoveBody removes a rigid body from the world
func (w *World) RemoveBody(body *actor.RigidBody) error {
	id, ok := w.BodyID(body)
	if !ok {
		return w.reject("remove body", ErrStaleHandle)
	}
	return w.DestroyBody(id)
}

// SetAwake wakes a body up, or puts it to sleep immediately
func (w *World) SetAwake(id BodyID, awake bool) error {
	node := w.bodies.get(handle(id))
	if node == nil {
		return w.reject("set awake", ErrStaleHandle)
	}
	if node.body.IsStatic() {
		return nil
	}

	if awake {
		node.body.Awake()
	} else {
		node.body.Sleep()
	}
	return nil
}

func wake(body *actor.RigidBody) {
	if !body.IsStatic() {
		body.Awake()
	}
}

func (w *World) removeEdge(bodySlot int32, kind edgeKind, index int32) {
	node := w.bodies.at(bodySlot)
	if node == nil {
		return
	}
	node.edges = slices.DeleteFunc(node.edges, func(e edge) bool {
		return e.kind == kind && e.index == index
	})
}

// ============================================================================
// Contacts
// ============================================================================

// CreateContact registers a contact between two bodies.
// The existing contact is returned when the pair already has one.
func (w *World) CreateContact(bodyA, bodyB BodyID) (ContactID, error) {
	if w.bodies.get(handle(bodyA)) == nil || w.bodies.get(handle(bodyB)) == nil {
		return ContactID{}, w.reject("create contact", ErrStaleHandle)
	}
	if bodyA == bodyB {
		return ContactID{}, w.reject("create contact", ErrSameBody)
	}

	return w.createContact(handle(bodyA).index, handle(bodyB).index), nil
}

func (w *World) createContact(slotA, slotB int32) ContactID {
	key := makePairKey(slotA, slotB)
	if index, exists := w.pairs[key]; exists {
		return ContactID(w.contacts.handleOf(index))
	}

	bodyA := w.bodies.at(slotA).body
	bodyB := w.bodies.at(slotB).body
	contact := constraint.NewContact(bodyA, bodyB)

	h := w.contacts.insert(contactNode{contact: contact, bodyA: slotA, bodyB: slotB, seen: w.broadPhasePass})
	w.pairs[key] = h.index
	w.contactSlots[contact] = h.index

	for _, slot := range []int32{slotA, slotB} {
		node := w.bodies.at(slot)
		node.edges = append(node.edges, edge{kind: edgeContact, index: h.index})
	}

	return ContactID(h)
}

// Contact returns the contact referenced by id
func (w *World) Contact(id ContactID) (*constraint.Contact, error) {
	node := w.contacts.get(handle(id))
	if node == nil {
		return nil, fmt.Errorf("feather2d: contact: %w", ErrStaleHandle)
	}
	return node.contact, nil
}

// ContactCount returns the number of live contacts, touching or not
func (w *World) ContactCount() int {
	return w.contacts.count
}

// Contacts iterates the live contacts
func (w *World) Contacts() iter.Seq2[ContactID, *constraint.Contact] {
	return func(yield func(ContactID, *constraint.Contact) bool) {
		for i := 0; i < w.contacts.len(); i++ {
			node := w.contacts.at(int32(i))
			if node == nil {
				continue
			}
			if !yield(ContactID(w.contacts.handleOf(int32(i))), node.contact) {
				return
			}
		}
	}
}

// DestroyContact removes a contact. A touching contact sends a ContactEndEvent.
func (w *World) DestroyContact(id ContactID) error {
	if w.contacts.get(handle(id)) == nil {
		return w.reject("destroy contact", ErrStaleHandle)
	}
	w.destroyContact(id)
	return nil
}

func (w *World) destroyContact(id ContactID) {
	node := w.contacts.get(handle(id))
	contact := node.contact

	if contact.IsTouching() {
		w.Events.emit(ContactEndEvent{Contact: id, BodyA: contact.BodyA, BodyB: contact.BodyB})
		// A body resting on the other loses its support
		wake(contact.BodyA)
		wake(contact.BodyB)
	}

	w.removeEdge(node.bodyA, edgeContact, handle(id).index)
	w.removeEdge(node.bodyB, edgeContact, handle(id).index)
	delete(w.pairs, makePairKey(node.bodyA, node.bodyB))
	delete(w.contactSlots, contact)
	w.contacts.remove(handle(id))
}

// jointPreventsCollision reports whether a joint between the two bodies disables their contact
func (w *World) jointPreventsCollision(slotA, slotB int32) bool {
	node := w.bodies.at(slotA)
	bodyB := w.bodies.at(slotB).body

	for _, e := range node.edges {
		if e.kind != edgeJoint {
			continue
		}
		joint := w.joints.at(e.index).joint
		if joint.CollideConnected() {
			continue
		}
		if (joint.BodyA() == node.body && joint.BodyB() == bodyB) || (joint.BodyA() == bodyB && joint.BodyB() == node.body) {
			return true
		}
	}

	return false
}

// UpdateContacts runs the broad phase, creates the contacts of new pairs, destroys the
// contacts whose pair disappeared and refreshes every manifold with the Collider.
func (w *World) UpdateContacts() {
	if w.SpatialGrid != nil {
		w.findContacts()
	}
	if w.Collider != nil {
		w.collide()
	}
}

func (w *World) findContacts() {
	w.broadPhasePass++
	w.broadPhaseBodies = w.broadPhaseBodies[:0]
	w.broadPhaseSlots = w.broadPhaseSlots[:0]
	for i := 0; i < w.bodies.len(); i++ {
		node := w.bodies.at(int32(i))
		if node == nil || node.body.Shape == nil {
			continue
		}
		w.broadPhaseBodies = append(w.broadPhaseBodies, node.body)
		w.broadPhaseSlots = append(w.broadPhaseSlots, int32(i))
	}

	w.SpatialGrid.Rebuild(w.broadPhaseBodies)
	pairs := w.SpatialGrid.FindPairsParallel(w.broadPhaseBodies, w.Config.Workers)

	for _, pair := range pairs {
		slotA := w.broadPhaseSlots[pair.IndexA]
		slotB := w.broadPhaseSlots[pair.IndexB]

		if index, exists := w.pairs[makePairKey(slotA, slotB)]; exists {
			w.contacts.at(index).seen = w.broadPhasePass
			continue
		}
		if w.jointPreventsCollision(slotA, slotB) {
			continue
		}
		w.createContact(slotA, slotB)
	}

	for i := 0; i < w.contacts.len(); i++ {
		node := w.contacts.at(int32(i))
		if node == nil || node.seen == w.broadPhasePass {
			continue
		}
		// The broad phase skips pairs of sleeping bodies, their contacts stay
		if !isActive(node.contact.BodyA) && !isActive(node.contact.BodyB) {
			continue
		}
		w.destroyContact(ContactID(w.contacts.handleOf(int32(i))))
	}
}

func isActive(body *actor.RigidBody) bool {
	return !body.IsSleeping && !body.IsStatic()
}

func (w *World) collide() {
	for i := 0; i < w.contacts.len(); i++ {
		node := w.contacts.at(int32(i))
		if node == nil {
			continue
		}
		contact := node.contact
		if !isActive(contact.BodyA) && !isActive(contact.BodyB) {
			continue
		}

		manifold, stable := w.Collider.Collide(contact.BodyA, contact.BodyB)
		began, ended := contact.Update(manifold, stable)
		if !began && !ended {
			continue
		}

		wake(contact.BodyA)
		wake(contact.BodyB)

		id := ContactID(w.contacts.handleOf(int32(i)))
		if began {
			w.Events.emit(ContactBeginEvent{Contact: id, BodyA: contact.BodyA, BodyB: contact.BodyB})
		} else {
			w.Events.emit(ContactEndEvent{Contact: id, BodyA: contact.BodyA, BodyB: contact.BodyB})
		}
	}
}

// ============================================================================
// Joints
// ============================================================================

// CreateJoint adds a joint built by one of the constraint constructors.
// Every body of the joint must belong to the world, and the joints of a gear must have
// been created first. The bodies are woken up.
func (w *World) CreateJoint(joint constraint.Joint) (JointID, error) {
	if joint == nil {
		return JointID{}, w.reject("create joint", ErrInvalidBody)
	}
	if _, exists := w.jointSlots[joint]; exists {
		return JointID{}, w.reject("create joint", fmt.Errorf("joint already added: %w", ErrInvalidBody))
	}

	var slots []int32
	for _, body := range joint.Bodies() {
		slot, ok := w.bodySlots[body]
		if !ok {
			return JointID{}, w.reject("create joint", fmt.Errorf("%s joint body not in world: %w", joint.Kind(), ErrInvalidBody))
		}
		if !slices.Contains(slots, slot) {
			slots = append(slots, slot)
		}
	}

	if gear, ok := joint.(*constraint.GearJoint); ok {
		joint1, joint2 := gear.Joints()
		_, ok1 := w.jointSlots[joint1]
		_, ok2 := w.jointSlots[joint2]
		if !ok1 || !ok2 {
			return JointID{}, w.reject("create joint", fmt.Errorf("gear references a joint not in world: %w", ErrStaleHandle))
		}
	}

	h := w.joints.insert(jointNode{joint: joint, bodies: slots})
	w.jointSlots[joint] = h.index
	for _, slot := range slots {
		node := w.bodies.at(slot)
		node.edges = append(node.edges, edge{kind: edgeJoint, index: h.index})
		wake(node.body)
	}

	if !joint.CollideConnected() {
		slotA, slotB := w.bodySlots[joint.BodyA()], w.bodySlots[joint.BodyB()]
		if index, exists := w.pairs[makePairKey(slotA, slotB)]; exists {
			w.destroyContact(ContactID(w.contacts.handleOf(index)))
		}
	}

	return JointID(h), nil
}

// Joint returns the joint referenced by id
func (w *World) Joint(id JointID) (constraint.Joint, error) {
	node := w.joints.get(handle(id))
	if node == nil {
		return nil, fmt.Errorf("feather2d: joint: %w", ErrStaleHandle)
	}
	return node.joint, nil
}

// JointCount returns the number of live joints
func (w *World) JointCount() int {
	return w.joints.count
}

// Joints iterates the live joints
func (w *World) Joints() iter.Seq2[JointID, constraint.Joint] {
	return func(yield func(JointID, constraint.Joint) bool) {
		for i := 0; i < w.joints.len(); i++ {
			node := w.joints.at(int32(i))
			if node == nil {
				continue
			}
			if !yield(JointID(w.joints.handleOf(int32(i))), node.joint) {
				return
			}
		}
	}
}

// DestroyJoint removes a joint and wakes its bodies.
// Gears built on top of the joint are destroyed too.
func (w *World) DestroyJoint(id JointID) error {
	if w.joints.get(handle(id)) == nil {
		return w.reject("destroy joint", ErrStaleHandle)
	}
	w.destroyJoint(id)
	return nil
}

func (w *World) destroyJoint(id JointID) {
	node := w.joints.get(handle(id))
	joint := node.joint

	if kind := joint.Kind(); kind == constraint.JointRevolute || kind == constraint.JointPrismatic {
		for gearID, other := range w.Joints() {
			gear, ok := other.(*constraint.GearJoint)
			if !ok {
				continue
			}
			if joint1, joint2 := gear.Joints(); joint1 == joint || joint2 == joint {
				w.destroyJoint(gearID)
			}
		}
	}

	for _, slot := range node.bodies {
		w.removeEdge(slot, edgeJoint, handle(id).index)
		if bodyNode := w.bodies.at(slot); bodyNode != nil {
			wake(bodyNode.body)
		}
	}
	delete(w.jointSlots, joint)
	w.joints.remove(handle(id))
}

// ============================================================================
// Step
// ============================================================================

// Step advances the world by dt seconds with the solver settings of the world config
func (w *World) Step(dt float64) {
	w.StepWith(dt, w.Config.Solver)
}

// StepWith advances the world by dt seconds with explicit solver settings
func (w *World) StepWith(dt float64, solver SolverConfig) {
	if err := solver.Validate(); err != nil {
		w.logger().Warn("invalid solver config, clamping", "error", err)
		solver.VelocityIterations = max(solver.VelocityIterations, 1)
		solver.PositionIterations = max(solver.PositionIterations, 1)
		if solver.Correction != constraint.CorrectionNGS {
			solver.Correction = constraint.CorrectionBaumgarte
		}
	}

	if !w.Config.AllowSleep {
		for _, body := range w.Bodies() {
			if body.IsSleeping {
				body.Awake()
			}
		}
	}

	w.UpdateContacts()

	step := constraint.TimeStep{
		Dt:                 dt,
		VelocityIterations: solver.VelocityIterations,
		PositionIterations: solver.PositionIterations,
		WarmStarting:       solver.WarmStarting,
		PositionCorrection: solver.PositionCorrection,
		Correction:         solver.Correction,
	}
	if dt > 0 {
		step.InvDt = 1.0 / dt
	}
	step.DtRatio = w.invDt0 * dt

	if dt > 0 {
		w.solve(step)
		w.invDt0 = step.InvDt
	}

	w.Events.processSleepEvents(w.Bodies())
	w.Events.flush()
}

// Islands returns the islands solved by the last step.
// They are reused by the next step.
func (w *World) Islands() []*Island {
	return w.islands[:w.islandCount]
}

func (w *World) solve(step constraint.TimeStep) {
	islands := w.buildIslands()

	task(w.Config.Workers, islands, func(island *Island) {
		island.solve(step, w.Config.Gravity, w.Config.AllowSleep)
	})

	for _, island := range islands {
		if island.Asleep {
			w.logger().Debug("island asleep", "bodies", island.owned, "contacts", len(island.Contacts), "joints", len(island.Joints))
		}
		w.postSolve(island)
	}
}

func (w *World) postSolve(island *Island) {
	if len(w.Events.listeners[POST_SOLVE]) == 0 {
		return
	}

	solver := &island.contactSolver
	for i := 0; i < solver.Count(); i++ {
		contact := solver.ContactAt(i)
		index, ok := w.contactSlots[contact]
		if !ok {
			continue
		}

		normal, tangent, count := solver.PointImpulses(i)
		w.Events.emit(PostSolveEvent{
			Contact:         ContactID(w.contacts.handleOf(index)),
			BodyA:           contact.BodyA,
			BodyB:           contact.BodyB,
			NormalImpulses:  normal,
			TangentImpulses: tangent,
			PointCount:      count,
		})
	}
}

func (w *World) nextIsland() *Island {
	if w.islandCount == len(w.islands) {
		w.islands = append(w.islands, newIsland())
	}
	island := w.islands[w.islandCount]
	island.reset()
	w.islandCount++

	return island
}

// buildIslands groups the awake bodies connected through touching contacts and joints.
// Static bodies end the traversal, so they can appear in several islands.
func (w *World) buildIslands() []*Island {
	for i := 0; i < w.bodies.len(); i++ {
		if node := w.bodies.at(int32(i)); node != nil {
			node.visited = false
		}
	}
	for i := 0; i < w.contacts.len(); i++ {
		if node := w.contacts.at(int32(i)); node != nil {
			node.visited = false
		}
	}
	for i := 0; i < w.joints.len(); i++ {
		if node := w.joints.at(int32(i)); node != nil {
			node.visited = false
		}
	}

	w.islandCount = 0
	w.stack = slices.Grow(w.stack[:0], w.bodies.count)

	for seed := 0; seed < w.bodies.len(); seed++ {
		seedNode := w.bodies.at(int32(seed))
		if seedNode == nil || seedNode.visited {
			continue
		}
		if seedNode.body.IsSleeping || seedNode.body.IsStatic() {
			continue
		}

		island := w.nextIsland()
		w.stack = append(w.stack[:0], int32(seed))
		seedNode.visited = true

		for len(w.stack) > 0 {
			slot := w.stack[len(w.stack)-1]
			w.stack = w.stack[:len(w.stack)-1]

			node := w.bodies.at(slot)
			body := node.body
			island.addBody(body)
			if body.IsSleeping {
				body.Awake()
			}

			for _, e := range node.edges {
				switch e.kind {
				case edgeContact:
					contactNode := w.contacts.at(e.index)
					if contactNode.visited {
						continue
					}
					contact := contactNode.contact
					if !contact.Enabled || !contact.IsTouching() {
						continue
					}
					contactNode.visited = true
					island.Contacts = append(island.Contacts, contact)

					other := contactNode.bodyA
					if other == slot {
						other = contactNode.bodyB
					}
					w.push(other)

				case edgeJoint:
					jointNode := w.joints.at(e.index)
					if jointNode.visited {
						continue
					}
					jointNode.visited = true
					island.Joints = append(island.Joints, jointNode.joint)

					for _, other := range jointNode.bodies {
						w.push(other)
					}
				}
			}
		}

		island.attachStatic()
	}

	return w.Islands()
}

// push schedules a body for the island traversal, static bodies are never traversed
func (w *World) push(slot int32) {
	node := w.bodies.at(slot)
	if node.visited || node.body.IsStatic() {
		return
	}
	node.visited = true
	w.stack = append(w.stack, slot)
}
