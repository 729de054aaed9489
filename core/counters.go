package core

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
)

/* CCounter Type */
const ScINFO = 0x12
const ScWARNING = 0x13
const ScERROR = 0x14

type cCounterVal struct {
	Counter interface{} `json:"cnt"`
}

// CCounterRec describes one counter: a pointer to the live value plus its
// metadata. Supported value types are *uint32, *uint64, *float32, *float64.
type CCounterRec struct {
	Counter  interface{} `json:"-"`
	Name     string      `json:"name"`
	Help     string      `json:"help"`
	Unit     string      `json:"unit"`
	DumpZero bool        `json:"zero"`
	Info     uint8       `json:"info"` // see ScINFO,ScWARNING,ScERROR
}

func (o *CCounterRec) IsValid() bool {
	return o.DumpZero || !o.IsZero()
}

func (o *CCounterRec) MarshalValue() []byte {
	res, _ := json.Marshal(&cCounterVal{Counter: o.Counter})
	return res
}

func (o *CCounterRec) MarshalMetaAndVal() []byte {
	res, _ := json.Marshal(o)
	return res
}

func (o *CCounterRec) IsZero() bool {
	switch v := o.Counter.(type) {
	case *uint32:
		return *v == 0
	case *uint64:
		return *v == 0
	case *float32:
		return *v == 0.0
	case *float64:
		return *v == 0.0
	}
	return false
}

func (o *CCounterRec) GetValAsString() string {
	switch v := o.Counter.(type) {
	case *uint32:
		return humanize.Comma(int64(*v))
	case *uint64:
		return humanize.Comma(int64(*v))
	case *float32:
		return fmt.Sprintf("%v", *v)
	case *float64:
		return fmt.Sprintf("%v", *v)
	}
	return "N/A"
}

func (o *CCounterRec) ClearValue() {
	switch v := o.Counter.(type) {
	case *uint32:
		*v = 0
	case *uint64:
		*v = 0
	case *float32:
		*v = 0.0
	case *float64:
		*v = 0.0
	}
}

func (o *CCounterRec) Dump() {
	if !o.IsZero() {
		fmt.Printf("%-30s : %15s %s \n", o.Name, o.GetValAsString(), o.Unit)
	}
}

// CCounterDb is a named set of counter records.
type CCounterDb struct {
	Name string         `json:"name"`
	Vec  []*CCounterRec `json:"meta"`
}

func NewCCounterDb(name string) *CCounterDb {
	return &CCounterDb{Name: name, Vec: []*CCounterRec{}}
}

func (o *CCounterDb) Add(cnt *CCounterRec) {
	o.Vec = append(o.Vec, cnt)
}

func (o *CCounterDb) Dump() {
	fmt.Println(" counters " + o.Name + " db")
	for _, obj := range o.Vec {
		obj.Dump()
	}
	fmt.Println(" ===")
}

func (o *CCounterDb) MarshalValues(zero bool) map[string]interface{} {
	m := make(map[string]interface{})
	for _, obj := range o.Vec {
		if zero || obj.IsValid() {
			m[obj.Name] = obj.Counter
		}
	}
	return m
}

func (o *CCounterDb) ClearValues() {
	for _, obj := range o.Vec {
		obj.ClearValue()
	}
}

func (o *CCounterDb) MarshalMeta() []byte {
	res, _ := json.Marshal(o)
	return res
}

// CCounterDbVec is a collection of counter dbs, one per component.
type CCounterDbVec struct {
	Name      string        `json:"name"`
	Vec       []*CCounterDb `json:"vec"`
	validator map[string]int
}

func NewCCounterDbVec(name string) *CCounterDbVec {
	return &CCounterDbVec{Name: name,
		Vec:       []*CCounterDb{},
		validator: make(map[string]int)}
}

func (o *CCounterDbVec) Add(cnt *CCounterDb) {
	_, ok := o.validator[cnt.Name]
	if ok {
		panic(fmt.Sprintf(" same key is added twice %s", cnt.Name))
	}
	o.validator[cnt.Name] = 1
	o.Vec = append(o.Vec, cnt)
}

func (o *CCounterDbVec) ClearValues() {
	for _, obj := range o.Vec {
		obj.ClearValues()
	}
}

func (o *CCounterDbVec) Dump() {
	fmt.Println(" counters " + o.Name + " dbvec")
	for _, obj := range o.Vec {
		obj.Dump()
	}
	fmt.Println(" ===")
}

func (o *CCounterDbVec) MarshalValues(zero bool) map[string]interface{} {
	m := make(map[string]interface{})
	for _, obj := range o.Vec {
		r := obj.MarshalValues(zero)
		if len(r) > 0 {
			m[obj.Name] = r
		}
	}
	return m
}
