package bindings

import (
	"testing"

	"hostmesh/internal/model"
)

func testCp() model.ConnectPoint {
	return model.ConnectPoint{DeviceId: "dev1", PortNumber: 1}
}

func TestStore_UpdateMergesAddresses(t *testing.T) {
	s := NewStore()
	cp := testCp()

	s.Update(model.PortAddresses{
		ConnectPoint: cp,
		MacAddresses: map[model.MacAddress]struct{}{"aa": {}},
		IpAddresses:  model.NewIpAddressSet("10.0.0.1"),
	})
	s.Update(model.PortAddresses{
		ConnectPoint: cp,
		MacAddresses: map[model.MacAddress]struct{}{"bb": {}},
		IpAddresses:  model.NewIpAddressSet("10.0.0.2"),
	})

	got, ok := s.GetForPort(cp)
	if !ok {
		t.Fatal("expected binding to be present")
	}
	if len(got.MacAddresses) != 2 || len(got.IpAddresses) != 2 {
		t.Errorf("expected merged addresses, got %+v", got)
	}
}

func TestStore_Remove(t *testing.T) {
	s := NewStore()
	cp := testCp()
	s.Update(model.PortAddresses{ConnectPoint: cp})

	s.Remove(cp)

	if _, ok := s.GetForPort(cp); ok {
		t.Error("expected binding to be removed")
	}
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Update(model.PortAddresses{ConnectPoint: testCp()})

	s.Clear()

	if got := s.GetAll(); len(got) != 0 {
		t.Errorf("expected empty store after Clear, got %v", got)
	}
}
