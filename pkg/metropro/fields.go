package metropro

import "encoding/binary"

var (
	be = binary.BigEndian
	le = binary.LittleEndian
)

type fieldKind int

const (
	kindU16 fieldKind = iota
	kindI16
	kindU32
	kindI32
	kindF32
	kindByte
	kindText
)

// field describes one positionally addressed header value.
type field struct {
	name   string
	offset int
	kind   fieldKind
	// count is the element count of numeric arrays and the byte width of text
	count int
	order binary.ByteOrder
	// since is the first header revision that carries the field
	since int
}

func (f field) size() int {
	switch f.kind {
	case kindU16, kindI16:
		return 2 * f.count
	case kindU32, kindI32, kindF32:
		return 4 * f.count
	default:
		return f.count
	}
}

func u16(name string, off int) field { return field{name, off, kindU16, 1, be, 1} }
func i16(name string, off int) field { return field{name, off, kindI16, 1, be, 1} }
func u32(name string, off int) field { return field{name, off, kindU32, 1, be, 1} }
func i32(name string, off int) field { return field{name, off, kindI32, 1, be, 1} }
func f32(name string, off int) field { return field{name, off, kindF32, 1, be, 1} }
func byte1(name string, off int) field { return field{name, off, kindByte, 1, be, 1} }

func f32s(name string, off, n int) field { return field{name, off, kindF32, n, be, 1} }
func text(name string, off, n int) field { return field{name, off, kindText, n, be, 1} }

func (f field) littleEndian() field {
	f.order = le
	return f
}

func (f field) from(rev int) field {
	f.since = rev
	return f
}

// headerFields is the MetroPro header layout. Unlisted byte ranges are
// reserved and never surfaced. The coordinate block at 502..530 was added
// to the format later and is stored little-endian; everything else is
// big-endian.
var headerFields = []field{
	u32("magic_number", 0),
	u16("header_format", 4),
	u32("header_size", 6),
	i16("swinfo_type", 10),
	text("swinfo_date", 12, 30),
	i16("swinfo_vers_maj", 42),
	i16("swinfo_vers_min", 44),
	i16("swinfo_vers_bug", 46),

	// intensity (camera) region
	i16("ac_org_x", 48),
	i16("ac_org_y", 50),
	i16("ac_width", 52),
	i16("ac_height", 54),
	i16("ac_n_buckets", 56),
	u16("ac_range", 58),
	i32("ac_n_bytes", 60),

	// phase (connected) region
	i16("cn_org_x", 64),
	i16("cn_org_y", 66),
	i16("cn_width", 68),
	i16("cn_height", 70),
	i32("cn_n_bytes", 72),

	i32("time_stamp", 76),
	text("comment", 80, 82),
	i16("source", 162),

	f32("intf_scale_factor", 164),
	f32("wavelength_in", 168),
	f32("num_aperture", 172),
	f32("obliquity_factor", 176),
	f32("magnification", 180),
	f32("lateral_res", 184),

	i16("acq_type", 188),
	i16("intens_avg_cnt", 190),
	i16("ramp_cal", 192),
	i16("sfac_limit", 194),
	i16("ramp_gain", 196),
	f32("part_thickness", 198),
	i16("sw_llc", 202),
	f32("target_range", 204),
	i16("rad_crv_meas_seq", 208),
	i32("min_mod", 210),
	i32("min_mod_count", 214),
	i16("phase_res", 218),
	i32("min_area", 220),
	i16("discon_action", 224),
	f32("discon_filter", 226),
	i16("connect_order", 230),
	i16("sign", 232),
	i16("camera_width", 234),
	i16("camera_height", 236),
	i16("sys_type", 238),
	i16("sys_board", 240),
	i16("sys_serial", 242),
	i16("inst_id", 244),
	text("obj_name", 246, 12),
	text("part_name", 258, 40),
	i16("codev_type", 298),
	i16("phase_avg_cnt", 300),
	i16("sub_sys_err", 302),
	text("part_ser_num", 320, 40),
	f32("refractive_index", 360),
	i16("remove_tilt_bias", 364),
	i16("remove_fringes", 366),
	i32("max_area", 368),
	i16("setup_type", 372),
	i16("wrapped", 374),
	f32("pre_connect_filter", 376),
	f32("wavelength_in_2", 380),
	i16("wavelength_fold", 384),
	f32("wavelength_in_1", 386),
	f32("wavelength_in_3", 390),
	f32("wavelength_in_4", 394),
	text("wavelen_select", 398, 8),
	i16("fda_res", 406),
	text("scan_descr", 408, 20),
	i16("n_fiducials_a", 428),
	f32s("fiducials_a", 430, 14),
	f32("pixel_width", 486),
	f32("pixel_height", 490),
	f32("exit_pupil_diam", 494),
	f32("light_level_pct", 498),

	// stage coordinates
	i32("coords_state", 502).littleEndian(),
	f32("coords_x_pos", 506).littleEndian(),
	f32("coords_y_pos", 510).littleEndian(),
	f32("coords_z_pos", 514).littleEndian(),
	f32("coords_x_rot", 518).littleEndian(),
	f32("coords_y_rot", 522).littleEndian(),
	f32("coords_z_rot", 526).littleEndian(),

	i16("coherence_mode", 530),
	i16("surface_filter", 532),
	text("sys_err_file_name", 534, 28),
	text("zoom_descr", 562, 8),
	f32("alpha_part", 570),
	f32("beta_part", 574),
	f32("dist_part", 578),
	i16("cam_split_loc_x", 582),
	i16("cam_split_loc_y", 584),
	i16("cam_split_trans_x", 586),
	i16("cam_split_trans_y", 588),
	text("material_a", 590, 24),
	text("material_b", 614, 24),
	i16("cam_split_unused", 638),
	f32("dmi_ctr_x", 642),
	f32("dmi_ctr_y", 646),
	i16("sph_dist_corr", 650),
	f32("sph_dist_part_na", 654),
	f32("sph_dist_part_radius", 658),
	f32("sph_dist_cal_na", 662),
	f32("sph_dist_cal_radius", 666),
	i16("surface_type", 670),
	i16("ac_surface_type", 672),
	f32("z_position", 674),
	f32("power_multiplier", 678),
	f32("focus_multiplier", 682),
	f32("rad_crv_focus_cal_factor", 686),
	f32("rad_crv_power_cal_factor", 690),
	f32("ftp_left_pos", 694),
	f32("ftp_right_pos", 698),
	f32("ftp_pitch_pos", 702),
	f32("ftp_roll_pos", 706),
	f32("min_mod_pct", 710),
	i32("max_inten", 714),
	i16("ring_of_fire", 718),
	byte1("rc_orientation", 721),
	f32("rc_distance", 722),
	f32("rc_angle", 726),
	f32("rc_diameter", 730),
	i16("rem_fringes_mode", 734),
	byte1("ftpsi_phase_res", 737),
	i16("frames_acquired", 738),
	i16("cavity_type", 740),
	f32("cam_frame_rate", 742),
	f32("tune_range", 746),
	i16("cal_pix_loc_x", 750),
	i16("cal_pix_loc_y", 752),
	i16("n_tst_cal_pts", 754),
	i16("n_ref_cal_pts", 756),
	f32s("tst_cal_pts", 758, 4),
	f32s("ref_cal_pts", 774, 4),
	f32("tst_cal_pix_opd", 790),
	f32("ref_cal_pix_opd", 794),
	i32("sys_serial2", 798),
	f32("flash_phase_dc_mask", 802),
	f32("flash_phase_alias_mask", 806),
	f32("flash_phase_filter", 810),
	byte1("scan_direction", 814),
	i16("pre_fda_filter", 816),
	i32("ftpsi_res_factor", 822),

	// thin-film block, 4096-byte headers only
	i16("films_mode", 834).from(3),
	i16("films_reflectivity_ratio", 836).from(3),
	f32("films_obliquity_correction", 838).from(3),
	f32("films_refraction_index", 842).from(3),
	f32("films_min_mod", 846).from(3),
	f32("films_min_thickness", 850).from(3),
	f32("films_max_thickness", 854).from(3),
	f32("films_min_refl_ratio", 858).from(3),
	f32("films_max_refl_ratio", 862).from(3),
	text("films_sys_char_file_name", 866, 28).from(3),
	i16("films_dfmt", 894).from(3),
	i16("films_merit_mode", 896).from(3),
	i16("films_h2g", 898).from(3),
	text("anti_vibration_cal_file_name", 900, 28).from(3),
	f32("films_fitting_error_threshold", 930).from(3),
}

var fieldIndex = func() map[string]int {
	m := make(map[string]int, len(headerFields))
	for i, f := range headerFields {
		m[f.name] = i
	}
	return m
}()

// FieldOffset returns the byte offset of a named header field
func FieldOffset(name string) (int, bool) {
	i, ok := fieldIndex[name]
	if !ok {
		return 0, false
	}
	return headerFields[i].offset, true
}

// FieldNames lists the fields carried by a header revision in offset order.
func FieldNames(rev int) []string {
	var names []string
	for _, f := range headerFields {
		if f.since <= rev {
			names = append(names, f.name)
		}
	}
	return names
}
