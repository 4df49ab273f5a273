package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/dramsim/queueing"
)

type sampleStruct struct {
	field1 int
	field2 string
	field3 *sampleStruct
	field4 []sampleStruct
}

type sampleComponent struct {
	name     string
	Count    int
	buffer   queueing.Buffer
	fifo     *queueing.FIFO[int]
	unused   *queueing.FIFO[int]
	notQueue []int
}

func (c *sampleComponent) Name() string {
	return c.name
}

func newSampleComponent(name string) *sampleComponent {
	return &sampleComponent{
		name:   name,
		Count:  3,
		buffer: queueing.NewFIFO[string](name+".Buf", 10),
		fifo:   queueing.NewFIFO[int](name+".FIFO", 4),
	}
}

type ownerComponent struct {
	buffers []queueing.Buffer
}

func (c *ownerComponent) Name() string {
	return "Owner"
}

func (c *ownerComponent) Buffers() []queueing.Buffer {
	return c.buffers
}

type fakeSimulation struct {
	pauses, continues int
	now               uint64
}

func (s *fakeSimulation) Pause()               { s.pauses++ }
func (s *fakeSimulation) Continue()            { s.continues++ }
func (s *fakeSimulation) CurrentCycle() uint64 { return s.now }
func (s *fakeSimulation) Do(f func())          { f() }

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
	)

	BeforeEach(func() {
		m = &Monitor{}
	})

	It("should register components and internal buffers", func() {
		c := newSampleComponent("Comp")
		m.RegisterComponent(c)

		Expect(m.components).To(HaveLen(1))
		Expect(m.buffers).To(HaveLen(2))
	})

	It("should use the buffers a component lists", func() {
		c := &ownerComponent{buffers: []queueing.Buffer{
			queueing.NewFIFO[int]("A", 1),
			queueing.NewFIFO[int]("B", 1),
			queueing.NewFIFO[int]("C", 1),
		}}
		m.RegisterComponent(c)

		Expect(m.buffers).To(HaveLen(3))
	})

	It("should walk int fields", func() {
		s := &sampleStruct{
			field1: 1,
		}

		elem, err := m.walkFields(s, "field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		s := &sampleStruct{
			field2: "abc",
		}

		elem, err := m.walkFields(s, "field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk struct", func() {
		s := &sampleStruct{
			field3: &sampleStruct{},
		}

		elem, err := m.walkFields(s, "field3")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Struct))
		Expect(elem.Type().Name()).To(Equal("sampleStruct"))
	})

	It("should walk slice recursively", func() {
		s := &sampleStruct{
			field4: []sampleStruct{{
				field4: []sampleStruct{
					{field1: 1},
				},
			}, {}},
		}

		elem, err := m.walkFields(s, "field4.0.field4.0.field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should refuse paths that do not exist", func() {
		s := &sampleStruct{field4: []sampleStruct{{}}}

		_, err := m.walkFields(s, "field9")
		Expect(err).To(HaveOccurred())

		_, err = m.walkFields(s, "field4.3")
		Expect(err).To(HaveOccurred())

		_, err = m.walkFields(s, "field3.field1")
		Expect(err).To(HaveOccurred())

		_, err = m.walkFields(s, "field1.x")
		Expect(err).To(HaveOccurred())
	})

	Context("when serving", func() {
		var (
			sim    *fakeSimulation
			router http.Handler
			comp   *sampleComponent
		)

		get := func(path string) *httptest.ResponseRecorder {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			return rec
		}

		bufferNames := func(path string) []string {
			rec := get(path)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var levels []bufferLevel
			Expect(json.Unmarshal(rec.Body.Bytes(), &levels)).To(Succeed())

			names := []string{}
			for _, l := range levels {
				names = append(names, l.Buffer)
			}

			return names
		}

		BeforeEach(func() {
			sim = &fakeSimulation{now: 42}
			m.RegisterSimulation(sim)

			comp = newSampleComponent("Comp")
			comp.fifo.Push(1)
			comp.fifo.Push(2)
			comp.fifo.Push(3)

			big := queueing.NewFIFO[int]("Big", 100)
			for i := 0; i < 5; i++ {
				big.Push(i)
			}

			m.RegisterComponent(comp)
			m.RegisterComponent(&ownerComponent{
				buffers: []queueing.Buffer{big},
			})

			router = m.Router()
		})

		It("should pause and continue the simulation", func() {
			Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
			Expect(get("/api/continue").Code).To(Equal(http.StatusOK))

			Expect(sim.pauses).To(Equal(1))
			Expect(sim.continues).To(Equal(1))
		})

		It("should report the current cycle", func() {
			Expect(get("/api/now").Body.String()).To(Equal(`{"now":42}`))
		})

		It("should list the components", func() {
			Expect(get("/api/list_components").Body.String()).
				To(Equal(`["Comp","Owner"]`))
		})

		It("should serialize a component", func() {
			Expect(get("/api/component/Comp").Code).To(Equal(http.StatusOK))
			Expect(get("/api/component/None").Code).To(Equal(http.StatusNotFound))
		})

		It("should reject a field path that does not exist", func() {
			req := url.PathEscape(`{"comp_name":"Comp","field_name":"missing"}`)

			Expect(get("/api/field/" + req).Code).To(Equal(http.StatusBadRequest))
		})

		It("should sort buffers by percent", func() {
			Expect(bufferNames("/api/hangdetector/buffers")).
				To(Equal([]string{"Comp.FIFO", "Big", "Comp.Buf"}))
		})

		It("should sort buffers by level", func() {
			Expect(bufferNames("/api/hangdetector/buffers?sort=level")).
				To(Equal([]string{"Big", "Comp.FIFO", "Comp.Buf"}))
		})

		It("should page through buffers", func() {
			Expect(bufferNames("/api/hangdetector/buffers?limit=1&offset=1")).
				To(Equal([]string{"Big"}))
			Expect(bufferNames("/api/hangdetector/buffers?offset=2")).
				To(Equal([]string{"Comp.Buf"}))
			Expect(bufferNames("/api/hangdetector/buffers?limit=5&offset=10")).
				To(BeEmpty())
		})

		It("should reject bad buffer queries", func() {
			Expect(get("/api/hangdetector/buffers?sort=name").Code).
				To(Equal(http.StatusBadRequest))
			Expect(get("/api/hangdetector/buffers?limit=x").Code).
				To(Equal(http.StatusBadRequest))
			Expect(get("/api/hangdetector/buffers?offset=-1").Code).
				To(Equal(http.StatusBadRequest))
		})

		It("should list progress bars", func() {
			bar := m.CreateProgressBar("Trace", 10)
			bar.IncrementInProgress(3)
			bar.MoveInProgressToFinished(2)

			other := m.CreateProgressBar("Other", 1)
			m.CompleteProgressBar(other)

			var bars []progressBarStatus
			Expect(json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)).
				To(Succeed())

			Expect(bars).To(HaveLen(1))
			Expect(bars[0].Name).To(Equal("Trace"))
			Expect(bars[0].Finished).To(Equal(uint64(2)))
			Expect(bars[0].InProgress).To(Equal(uint64(1)))
		})

		It("should serve the web page", func() {
			rec := get("/")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
		})
	})
})
